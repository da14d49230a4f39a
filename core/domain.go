package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidVerificationStatus = errors.New("core: invalid verification status")
	ErrMissingSourceOrderID      = errors.New("core: source order id is required")
	ErrMissingPhone              = errors.New("core: phone is required")
	ErrNegativeTotalAmount       = errors.New("core: total amount must not be negative")
	ErrVerificationNotFound      = errors.New("core: verification record not found")
)

// PaymentMethodUnknown is stored when the order carries no gateway name.
const PaymentMethodUnknown = "UNKNOWN"

type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "PENDING"
	VerificationStatusApproved VerificationStatus = "APPROVED"
	VerificationStatusRejected VerificationStatus = "REJECTED"
	VerificationStatusNoReply  VerificationStatus = "NO_REPLY"
)

func ParseVerificationStatus(raw string) (VerificationStatus, error) {
	status := VerificationStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case VerificationStatusPending,
		VerificationStatusApproved,
		VerificationStatusRejected,
		VerificationStatusNoReply:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVerificationStatus, raw)
	}
}

// Terminal reports whether the status is past the point where a customer
// reply can still change it.
func (s VerificationStatus) Terminal() bool {
	switch s {
	case VerificationStatusApproved, VerificationStatusRejected, VerificationStatusNoReply:
		return true
	default:
		return false
	}
}

// VerificationRecord is the durable entity created once per source order.
// The record is created as PENDING by the ingestion pipeline; every later
// status transition is performed by the external verification actor.
type VerificationRecord struct {
	ID             string
	SourceOrderID  string
	AdminGraphqlID string
	OrderNumber    string
	CustomerName   string
	ContactEmail   string
	Phone          string
	TotalAmount    float64
	Currency       string
	PaymentMethod  string
	ItemsSummary   string
	City           string
	State          string
	PostalCode     string
	Address        string
	Country        string
	Status         VerificationStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateVerificationInput carries the fields the pipeline extracts from an
// order event. Identity and timestamps are assigned by the repository.
type CreateVerificationInput struct {
	SourceOrderID  string
	AdminGraphqlID string
	OrderNumber    string
	CustomerName   string
	ContactEmail   string
	Phone          string
	TotalAmount    float64
	Currency       string
	PaymentMethod  string
	ItemsSummary   string
	City           string
	State          string
	PostalCode     string
	Address        string
	Country        string
}

func (in CreateVerificationInput) Validate() error {
	if strings.TrimSpace(in.SourceOrderID) == "" {
		return ErrMissingSourceOrderID
	}
	if strings.TrimSpace(in.Phone) == "" {
		return ErrMissingPhone
	}
	if in.TotalAmount < 0 {
		return fmt.Errorf("%w: %f", ErrNegativeTotalAmount, in.TotalAmount)
	}
	return nil
}

// NotificationPayload is the minimal projection relayed to the downstream
// notifier. It is derived from the persisted record and never stored.
type NotificationPayload struct {
	Phone             string  `json:"phone"`
	CustomerFirstName string  `json:"customer_first_name"`
	OrderID           string  `json:"id"`
	TotalPrice        float64 `json:"total_price"`
	OrderNumber       string  `json:"order_number"`
}

func NotificationPayloadFromRecord(record VerificationRecord) NotificationPayload {
	firstName := strings.TrimSpace(record.CustomerName)
	if idx := strings.IndexByte(firstName, ' '); idx > 0 {
		firstName = firstName[:idx]
	}
	return NotificationPayload{
		Phone:             strings.TrimSpace(record.Phone),
		CustomerFirstName: firstName,
		OrderID:           strings.TrimSpace(record.SourceOrderID),
		TotalPrice:        record.TotalAmount,
		OrderNumber:       strings.TrimSpace(record.OrderNumber),
	}
}

// InboundRequest is the raw webhook envelope handed to the pipeline. Body
// holds the exact bytes as received; signature verification depends on them
// staying untouched.
type InboundRequest struct {
	Headers  map[string]string
	Body     []byte
	Metadata map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Metadata   map[string]any
}
