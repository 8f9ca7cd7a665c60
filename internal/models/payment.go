package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

// Payment transitions are monotonic: pending may move to approved or
// rejected, and nothing moves out of approved or rejected.
const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// Payment is one attempt to collect funds for an order. An order may
// accumulate several attempts, but only one ever reaches approved.
type Payment struct {
	ID                uuid.UUID     `json:"id"`
	OrderID           uuid.UUID     `json:"order_id"`
	Amount            float64       `json:"amount"`
	Currency          string        `json:"currency"`
	Method            string        `json:"method"`
	Status            PaymentStatus `json:"status"`
	ExternalReference string        `json:"external_reference,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type ConfirmPaymentRequest struct {
	ExternalReference string `json:"external_reference" validate:"required"`
}

// PaymentInitResponse carries the gateway redirect the shopper is sent to.
type PaymentInitResponse struct {
	Payment     *Payment `json:"payment"`
	RedirectURL string   `json:"redirect_url"`
}
