// Package qrpayload decodes the string a QR scanner yields back into a
// candidate pickup code. The transport itself (rendering, scanning) is an
// external concern; only the string contract lives here.
package qrpayload

import (
	"encoding/json"
	"errors"
	"strings"
)

// Payload is the JSON object embedded in customer-facing QR codes. Field names
// are the ones the mobile clients already emit.
type Payload struct {
	Code     string         `json:"codigo"`
	OrderRef string         `json:"pedido_id"`
	Items    map[string]int `json:"itens"`
}

var ErrInvalidPayload = errors.New("payload carries no pickup code")

// Encode renders the payload string that goes into a QR code.
func Encode(code, orderRef string, items map[string]int) (string, error) {
	b, err := json.Marshal(Payload{Code: code, OrderRef: orderRef, Items: items})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// isNumericCode reports whether s looks like a bare pickup code.
func isNumericCode(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Decode accepts either the JSON payload or a bare numeric code string (staff
// can always type the digits by hand) and returns the candidate code.
func Decode(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if isNumericCode(raw) {
		return raw, nil
	}

	var payload Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", ErrInvalidPayload
	}
	if !isNumericCode(payload.Code) {
		return "", ErrInvalidPayload
	}
	return payload.Code, nil
}
