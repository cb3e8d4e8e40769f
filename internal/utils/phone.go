package utils

import (
	"errors"
	"strings"
)

// FormatPhoneNumber normalizes a payer phone number to the international
// format the rail expects (2547XXXXXXXX, no plus sign)
func FormatPhoneNumber(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")

	if strings.HasPrefix(phone, "0") {
		phone = "254" + phone[1:]
	}

	if len(phone) != 12 || !strings.HasPrefix(phone, "254") {
		return "", errors.New("phone number must be a valid mobile number")
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", errors.New("phone number must contain digits only")
		}
	}

	return phone, nil
}
