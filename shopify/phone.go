package shopify

import "strings"

// NormalizePhone canonicalizes a raw phone string into a single
// international-format representation. This is a lossy heuristic tuned for
// one country's numbering plan (the configured default calling code), not
// general E.164 validation:
//
//  1. empty input fails normalization,
//  2. exactly 10 digits gets the default country code prefixed,
//  3. 12 digits already starting with the country code get a "+",
//  4. input already in "+<countrycode>…" form is returned unchanged,
//  5. anything else is returned with a "+" prefix as a best effort.
func NormalizePhone(raw string, countryCode string) (string, bool) {
	countryCode = strings.TrimSpace(countryCode)
	cleaned := digitsOnly(raw)
	if cleaned == "" {
		return "", false
	}

	if len(cleaned) == 10 {
		return "+" + countryCode + cleaned, true
	}
	if strings.HasPrefix(cleaned, countryCode) && len(cleaned) == len(countryCode)+10 {
		return "+" + cleaned, true
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "+"+countryCode) {
		return strings.TrimSpace(raw), true
	}
	return "+" + cleaned, true
}

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
