package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukapos/backend/internal/models"
)

// initiateOverHTTP drives the initiate endpoint and returns the checkout id
func initiateOverHTTP(t *testing.T, f *handlerFixture, router http.Handler) string {
	t.Helper()

	body, _ := json.Marshal(gin.H{
		"ticket_id":    f.ticketID.String(),
		"amount":       200,
		"phone_number": "0712345678",
		"device_id":    "till-01",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		CheckoutRequestID string `json:"checkout_request_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.CheckoutRequestID)
	return resp.CheckoutRequestID
}

func callbackBody(checkoutRequestID string, code int, amount float64, receipt string) []byte {
	callback := gin.H{
		"MerchantRequestID": "mr-1",
		"CheckoutRequestID": checkoutRequestID,
		"ResultCode":        code,
		"ResultDesc":        "result",
	}
	if code == 0 {
		callback["CallbackMetadata"] = gin.H{
			"Item": []gin.H{
				{"Name": "Amount", "Value": amount},
				{"Name": "MpesaReceiptNumber", "Value": receipt},
				{"Name": "PhoneNumber", "Value": 254712345678},
			},
		}
	}
	body, _ := json.Marshal(gin.H{"Body": gin.H{"stkCallback": callback}})
	return body
}

func postCallback(router http.Handler, scope string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mpesa/"+scope, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestMpesaCallback_AcksAndReconciles(t *testing.T) {
	f := newHandlerFixture()
	router := f.router()
	checkoutID := initiateOverHTTP(t, f, router)

	w := postCallback(router, f.scopePath(), callbackBody(checkoutID, 0, 200, "NLJ7RT61SV"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ack struct {
		ResultCode int    `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, 0, ack.ResultCode)
	assert.Equal(t, "Accepted", ack.ResultDesc)

	attempt, err := f.attempts.FindByCheckoutID(context.Background(), checkoutID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStatusCompleted, attempt.Status)

	ticket := f.tickets.rows[f.ticketID]
	assert.Equal(t, 200.0, ticket.AmountPaid)
	assert.Equal(t, models.TicketStatusCompleted, ticket.Status)
}

func TestMpesaCallback_DuplicateDeliveryAckedOnce(t *testing.T) {
	f := newHandlerFixture()
	router := f.router()
	checkoutID := initiateOverHTTP(t, f, router)

	body := callbackBody(checkoutID, 0, 200, "NLJ7RT61SV")
	require.Equal(t, http.StatusOK, postCallback(router, f.scopePath(), body).Code)
	require.Equal(t, http.StatusOK, postCallback(router, f.scopePath(), body).Code)

	assert.Len(t, f.results.rows, 1)
	assert.Equal(t, 200.0, f.tickets.rows[f.ticketID].AmountPaid)
}

func TestMpesaCallback_UnknownCheckoutAckedWithoutWrite(t *testing.T) {
	f := newHandlerFixture()
	router := f.router()

	w := postCallback(router, f.scopePath(), callbackBody("ws_CO_never_seen", 0, 100, "RCPT"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.results.rows)
}

func TestMpesaCallback_RoutingMismatchAcked(t *testing.T) {
	f := newHandlerFixture()
	router := f.router()
	checkoutID := initiateOverHTTP(t, f, router)

	other := newHandlerFixture()
	w := postCallback(router, other.scopePath(), callbackBody(checkoutID, 0, 200, "RCPT"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.results.rows)

	attempt, err := f.attempts.FindByCheckoutID(context.Background(), checkoutID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStatusPending, attempt.Status)
}

func TestMpesaCallback_MissingCheckoutIDRejected(t *testing.T) {
	f := newHandlerFixture()
	router := f.router()

	w := postCallback(router, f.scopePath(), callbackBody("", 0, 100, "RCPT"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMpesaCallback_InvalidScopeRejected(t *testing.T) {
	f := newHandlerFixture()
	router := f.router()

	for _, scope := range []string{
		"bogus",
		"business-notauuid-branch-" + f.branchID.String(),
		fmt.Sprintf("branch-%s-business-%s", f.branchID, f.businessID),
	} {
		w := postCallback(router, scope, callbackBody("ws_CO_x", 0, 100, "RCPT"))
		assert.Equal(t, http.StatusBadRequest, w.Code, "scope %q", scope)
	}
}

func TestMpesaCallback_MalformedBodyRejected(t *testing.T) {
	f := newHandlerFixture()
	router := f.router()

	w := postCallback(router, f.scopePath(), []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
