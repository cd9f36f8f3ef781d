package whatsapp

import (
	"strings"
)

// NormalizePhoneNumber converts a locally written number to the international
// digits-only form WhatsApp expects.
//
// Formatting characters are dropped. A leading 0 is replaced by countryCode
// (0812... -> 62812...) and a stray trunk zero after the country code is
// removed (620812... -> 62812...).
func NormalizePhoneNumber(phoneNumber, countryCode string) string {
	var b strings.Builder
	for _, r := range phoneNumber {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	phoneNumber = b.String()

	// 00 is the international call prefix
	if strings.HasPrefix(phoneNumber, "00") {
		phoneNumber = phoneNumber[2:]
	}

	if countryCode == "" {
		return phoneNumber
	}

	if strings.HasPrefix(phoneNumber, "0") {
		phoneNumber = countryCode + phoneNumber[1:]
	}

	if strings.HasPrefix(phoneNumber, countryCode+"0") {
		phoneNumber = countryCode + phoneNumber[len(countryCode)+1:]
	}

	return phoneNumber
}
