package resolve

import (
	"strings"
	"unicode"
)

// freemailDomains are providers whose domain says nothing about the
// person's organization.
var freemailDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"yahoo.com":      true,
	"icloud.com":     true,
	"protonmail.com": true,
	"proton.me":      true,
	"aol.com":        true,
	"gmx.de":         true,
	"gmx.net":        true,
	"web.de":         true,
}

// NameFromEmail derives a readable display name from the local part of
// an address: "jane.m-doe@x.org" becomes "Jane M Doe". Purely numeric
// or single-character segments are kept as-is since we cannot tell a
// initial from noise.
func NameFromEmail(email string) string {
	local, _, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return email
	}
	segments := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(segments) == 0 {
		return local
	}
	for i, seg := range segments {
		segments[i] = capitalize(seg)
	}
	return strings.Join(segments, " ")
}

// OrganizationFromEmail guesses an organization name from the address
// domain. Freemail providers yield "", as does anything without a domain.
func OrganizationFromEmail(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" {
		return ""
	}
	domain = strings.ToLower(domain)
	if freemailDomains[domain] {
		return ""
	}
	// strip the TLD, keep the registrable label
	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return capitalize(domain)
	}
	return capitalize(parts[len(parts)-2])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
