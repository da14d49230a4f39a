// Package shopify models the inbound order webhook payload and the
// extraction rules that turn it into verification input.
package shopify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Order is the ephemeral, typed view of the order-creation webhook body.
// Only the fields the pipeline consumes are mapped; the rest of the payload
// is ignored on decode and discarded after processing.
type Order struct {
	ID              json.Number     `json:"id"`
	AdminGraphqlID  string          `json:"admin_graphql_api_id"`
	OrderNumber     json.Number     `json:"order_number"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	TotalPrice      string          `json:"total_price"`
	Currency        string          `json:"currency"`
	Gateway         string          `json:"gateway"`
	PaymentGateways []string        `json:"payment_gateway_names"`
	Customer        *Customer       `json:"customer"`
	BillingAddress  *Address        `json:"billing_address"`
	ShippingAddress *Address        `json:"shipping_address"`
	DefaultAddress  *Address        `json:"default_address"`
	LineItems       []LineItem      `json:"line_items"`
	NoteAttributes  []NoteAttribute `json:"note_attributes"`
}

type Customer struct {
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	DefaultAddress *Address       `json:"default_address"`
	Metafields     map[string]any `json:"metafields"`
}

type Address struct {
	Phone    string `json:"phone"`
	Address1 string `json:"address1"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

type LineItem struct {
	Name     string      `json:"name"`
	Quantity json.Number `json:"quantity"`
}

type NoteAttribute struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ParseOrder decodes the raw webhook body. A decode failure means the body
// was not valid JSON; callers treat that as an internal fault since the
// request already passed signature verification.
func ParseOrder(raw []byte) (Order, error) {
	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return Order{}, fmt.Errorf("shopify: decode order payload: %w", err)
	}
	return order, nil
}

// SourceOrderID returns the upstream order identifier as a string.
func (o Order) SourceOrderID() string {
	return strings.TrimSpace(o.ID.String())
}

// OrderReference returns the human-facing order number.
func (o Order) OrderReference() string {
	return strings.TrimSpace(o.OrderNumber.String())
}

// IsOrderEvent reports whether the payload carries the minimal identity of
// an order. The platform delivers non-order webhook topics to the same
// endpoint; those must be acknowledged, not processed.
func (o Order) IsOrderEvent() bool {
	return o.SourceOrderID() != "" && o.OrderReference() != ""
}

// TotalAmount parses the decimal total. Shopify sends it as a string;
// an absent or unparseable value yields zero and ok=false.
func (o Order) TotalAmount() (float64, bool) {
	trimmed := strings.TrimSpace(o.TotalPrice)
	if trimmed == "" {
		return 0, false
	}
	amount, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || amount < 0 {
		return 0, false
	}
	return amount, true
}

// PaymentMethod returns the first gateway name, preferring the modern
// payment_gateway_names list over the legacy gateway field.
func (o Order) PaymentMethod() string {
	for _, gateway := range o.PaymentGateways {
		if trimmed := strings.TrimSpace(gateway); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(o.Gateway)
}

// CustomerName returns "First Last" from the customer object, falling back
// to the top-level order name when no customer is attached.
func (o Order) CustomerName() string {
	if o.Customer != nil {
		full := strings.TrimSpace(strings.TrimSpace(o.Customer.FirstName) + " " + strings.TrimSpace(o.Customer.LastName))
		if full != "" {
			return full
		}
	}
	return strings.TrimSpace(o.Name)
}

// ContactEmail prefers the customer email over the order-level email.
func (o Order) ContactEmail() string {
	if o.Customer != nil {
		if email := strings.TrimSpace(o.Customer.Email); email != "" {
			return email
		}
	}
	return strings.TrimSpace(o.Email)
}
