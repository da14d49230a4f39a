package shopify

import "strings"

// ItemsSummary renders purchased line items as a single human-readable
// string: "<name> × <quantity>" pairs joined by ", ", in input order.
func ItemsSummary(items []LineItem) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.Name+" × "+item.Quantity.String())
	}
	return strings.Join(parts, ", ")
}
