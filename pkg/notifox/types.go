package notifox

import "github.com/shopspring/decimal"

// Delivery channels accepted by the API. Empty lets the server choose.
const (
	SMS   = "sms"
	Email = "email"
)

// AlertRequest represents a request to send an alert.
type AlertRequest struct {
	Audience string `json:"audience"`
	Alert    string `json:"alert"`
	Channel  string `json:"channel,omitempty"`
}

// AlertResponse represents the response from sending an alert.
type AlertResponse struct {
	MessageID  string          `json:"message_id"`
	Parts      int             `json:"parts"`
	Cost       decimal.Decimal `json:"cost"`
	Currency   string          `json:"currency"`
	Encoding   string          `json:"encoding"`
	Characters int             `json:"characters"`
}

// ErrorResponse represents an error response from the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
