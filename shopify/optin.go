package shopify

import (
	"fmt"
	"strings"
)

// OptInAttributeName is the note attribute the storefront sets when the
// customer ticks the notification consent box at checkout.
const OptInAttributeName = "whatsapp_opt_in"

// HasNotificationOptIn reports whether the order grants permission to send
// the customer a verification message. Permission requires an explicit
// signal: a note attribute named whatsapp_opt_in with a value of "true"
// (case-insensitive), or a customer metafield carrying the same flag.
// Absent any signal the answer is no: sending unsolicited messages is the
// failure mode this gate exists to prevent.
func HasNotificationOptIn(order Order) bool {
	for _, attr := range order.NoteAttributes {
		if !strings.EqualFold(strings.TrimSpace(attr.Name), OptInAttributeName) {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(fmt.Sprint(attr.Value)), "true") {
			return true
		}
	}
	if order.Customer != nil {
		if flag, ok := order.Customer.Metafields[OptInAttributeName]; ok {
			switch value := flag.(type) {
			case bool:
				return value
			case string:
				return strings.EqualFold(strings.TrimSpace(value), "true")
			}
		}
	}
	return false
}
