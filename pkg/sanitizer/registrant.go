package sanitizer

import (
	"strings"

	"testdrive/pkg/model"
)

// SanitizeRegistrant returns a normalized copy of r. Consent flags and the
// signature payload are passed through untouched.
func SanitizeRegistrant(r model.Registrant) model.Registrant {
	out := r
	out.FirstName = NormalizeName(r.FirstName)
	out.LastName = NormalizeName(r.LastName)
	out.Email = NormalizeEmail(r.Email)
	if phone := NormalizePhone(r.Phone); phone != "" {
		out.Phone = phone
	} else {
		out.Phone = strings.TrimSpace(r.Phone)
	}
	out.Signature = strings.TrimSpace(r.Signature)
	out.WaiverPDFURL = NormalizeURL(r.WaiverPDFURL)

	if len(r.AdditionalPassengers) > 0 {
		out.AdditionalPassengers = make([]model.Passenger, 0, len(r.AdditionalPassengers))
		for _, p := range r.AdditionalPassengers {
			p.Name = NormalizeName(p.Name)
			p.GuardianName = NormalizeName(p.GuardianName)
			p.GuardianRelationship = strings.ToLower(strings.TrimSpace(p.GuardianRelationship))
			out.AdditionalPassengers = append(out.AdditionalPassengers, p)
		}
	}
	return out
}
