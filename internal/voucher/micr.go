package voucher

import "strings"

// MICRFields are the parts of an E13B MICR line
type MICRFields struct {
	CheckNumber   string
	RoutingNumber string
	AccountNumber string
	BankCode      string
}

// ParseMICR splits a raw MICR line on the transit (T) and on-us (U) symbols.
// Blank parts keep their position. Lines with fewer than four parts yield empty fields.
func ParseMICR(raw string) MICRFields {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == 'T' || r == 'U'
	})
	if len(parts) < 4 {
		return MICRFields{}
	}

	return MICRFields{
		CheckNumber:   strings.TrimSpace(parts[0]),
		RoutingNumber: strings.TrimSpace(strings.ReplaceAll(parts[1], "?", "")),
		AccountNumber: strings.TrimSpace(parts[2]),
		BankCode:      strings.TrimSpace(parts[3]),
	}
}
