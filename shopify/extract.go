package shopify

import (
	"strings"

	"github.com/goliatone/go-order-verify/core"
)

// ExtractPhone walks the phone candidates in fixed priority order: the
// customer phone, the top-level order phone, then shipping, billing, and
// default address phones. Returns the first non-empty candidate; many valid
// orders carry none at all.
func ExtractPhone(order Order) (string, bool) {
	candidates := make([]string, 0, 5)
	if order.Customer != nil {
		candidates = append(candidates, order.Customer.Phone)
	}
	candidates = append(candidates, order.Phone)
	if order.ShippingAddress != nil {
		candidates = append(candidates, order.ShippingAddress.Phone)
	}
	if order.BillingAddress != nil {
		candidates = append(candidates, order.BillingAddress.Phone)
	}
	if order.DefaultAddress != nil {
		candidates = append(candidates, order.DefaultAddress.Phone)
	} else if order.Customer != nil && order.Customer.DefaultAddress != nil {
		candidates = append(candidates, order.Customer.DefaultAddress.Phone)
	}

	for _, candidate := range candidates {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

// shippingLocality picks the address used for the record's locality fields:
// shipping first, then billing, then the order default.
func shippingLocality(order Order) Address {
	for _, addr := range []*Address{order.ShippingAddress, order.BillingAddress, order.DefaultAddress} {
		if addr != nil {
			return *addr
		}
	}
	return Address{}
}

// BuildVerificationInput projects the order and its normalized phone into
// the repository create input. The caller has already run phone extraction
// and normalization.
func BuildVerificationInput(order Order, normalizedPhone string) core.CreateVerificationInput {
	total, _ := order.TotalAmount()
	payment := order.PaymentMethod()
	if payment == "" {
		payment = core.PaymentMethodUnknown
	}
	locality := shippingLocality(order)
	return core.CreateVerificationInput{
		SourceOrderID:  order.SourceOrderID(),
		AdminGraphqlID: strings.TrimSpace(order.AdminGraphqlID),
		OrderNumber:    order.OrderReference(),
		CustomerName:   order.CustomerName(),
		ContactEmail:   order.ContactEmail(),
		Phone:          normalizedPhone,
		TotalAmount:    total,
		Currency:       strings.TrimSpace(order.Currency),
		PaymentMethod:  payment,
		ItemsSummary:   ItemsSummary(order.LineItems),
		City:           strings.TrimSpace(locality.City),
		State:          strings.TrimSpace(locality.Province),
		PostalCode:     strings.TrimSpace(locality.Zip),
		Address:        strings.TrimSpace(locality.Address1),
		Country:        strings.TrimSpace(locality.Country),
	}
}
