package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	// API endpoints
	sandboxBaseURL = "https://sandbox.safaricom.co.ke"
	prodBaseURL    = "https://api.safaricom.co.ke"

	tokenEndpoint    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushEndpoint  = "/mpesa/stkpush/v1/processrequest"
	stkQueryEndpoint = "/mpesa/stkpushquery/v1/query"

	timestampLayout = "20060102150405"
)

// Credentials is one branch's Daraja credential set
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	UseSandbox     bool
}

// Client talks to the Daraja STK push API for a single credential set. It is
// a pure I/O boundary: token acquisition, payment submission and status
// query, no business logic.
type Client struct {
	BaseURL     string
	credentials Credentials
	HTTPClient  *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new Daraja client. The HTTP timeout is short on
// purpose: a slow provider is treated as a submission failure and the caller
// re-initiates explicitly.
func NewClient(creds Credentials, timeout time.Duration) *Client {
	baseURL := prodBaseURL
	if creds.UseSandbox {
		baseURL = sandboxBaseURL
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	return &Client{
		BaseURL:     baseURL,
		credentials: creds,
		HTTPClient:  &http.Client{Timeout: timeout},
	}
}

// TokenResponse represents the OAuth token response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// Authenticate returns a bearer token, fetching a new one only when the
// cached token has expired
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.credentials.ConsumerKey + ":" + c.credentials.ConsumerSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+tokenEndpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", wrapTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiErrorFrom(resp)
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	expiresIn := 3600
	if n, err := time.ParseDuration(tokenResp.ExpiresIn + "s"); err == nil {
		expiresIn = int(n.Seconds())
	}

	c.accessToken = tokenResp.AccessToken
	// Refresh a minute early so an almost-expired token is never sent.
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn-60) * time.Second)

	return c.accessToken, nil
}

// STKPushRequest is the request to push a payment prompt to a phone
type STKPushRequest struct {
	Amount           int64
	PhoneNumber      string
	CallbackURL      string
	AccountReference string
	Description      string
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse represents the synchronous response to an STK push. The
// payment outcome itself arrives later on the callback URL.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKPush pushes a payment prompt to the payer's phone
func (c *Client) STKPush(ctx context.Context, request STKPushRequest) (*STKPushResponse, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format(timestampLayout)
	payload := stkPushPayload{
		BusinessShortCode: c.credentials.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            request.Amount,
		PartyA:            request.PhoneNumber,
		PartyB:            c.credentials.ShortCode,
		PhoneNumber:       request.PhoneNumber,
		CallBackURL:       request.CallbackURL,
		AccountReference:  request.AccountReference,
		TransactionDesc:   request.Description,
	}

	var pushResp STKPushResponse
	if err := c.post(ctx, stkPushEndpoint, token, payload, &pushResp); err != nil {
		return nil, err
	}

	if pushResp.ResponseCode != "0" {
		return nil, &APIError{Code: pushResp.ResponseCode, Message: pushResp.ResponseDescription}
	}

	return &pushResp, nil
}

// STKQueryResponse represents the response to a status query
type STKQueryResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

type stkQueryPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// STKQuery queries the status of an earlier push. Diagnostic and
// administrative tooling only; terminal polling never reaches the provider.
func (c *Client) STKQuery(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format(timestampLayout)
	payload := stkQueryPayload{
		BusinessShortCode: c.credentials.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	var queryResp STKQueryResponse
	if err := c.post(ctx, stkQueryEndpoint, token, payload, &queryResp); err != nil {
		return nil, err
	}

	return &queryResp, nil
}

// post sends an authenticated JSON request and decodes the response
func (c *Client) post(ctx context.Context, endpoint, token string, payload, dest interface{}) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return wrapTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiErrorFrom(resp)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}

// password derives the STK push password for a timestamp
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.credentials.ShortCode + c.credentials.Passkey + timestamp))
}

// apiErrorFrom builds a structured APIError from a non-200 response
func apiErrorFrom(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var apiErr struct {
		RequestID    string `json:"requestId"`
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && (apiErr.ErrorCode != "" || apiErr.ErrorMessage != "") {
		return &APIError{StatusCode: resp.StatusCode, Code: apiErr.ErrorCode, Message: apiErr.ErrorMessage}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
}
