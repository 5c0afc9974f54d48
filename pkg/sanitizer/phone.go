package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Registrations come from US events; numbers without a country code are read
// as US numbers.
const DefaultRegion = "US"

// NormalizePhone returns the E.164 form of phone, or "" when it cannot be a
// real number.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(phone, DefaultRegion)
	if err != nil || !phonenumbers.IsPossibleNumber(parsed) {
		return ""
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
