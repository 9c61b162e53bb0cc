// Package validate holds the pure field validators used to gate intake form
// transitions. Each validator returns "" for valid input or a human-readable
// reason string (French, matching the product surface); bad input is never an
// error value because it is expected, user-correctable data.
package validate

import "strings"

// Email checks the RFC-light shape local@domain.tld: exactly one @, a
// non-empty local part, a domain containing an interior dot, and no
// whitespace anywhere.
func Email(s string) string {
	const reason = "Adresse email invalide"
	if strings.ContainsAny(s, " \t\r\n") {
		return reason
	}
	at := strings.IndexByte(s, '@')
	if at <= 0 || at != strings.LastIndexByte(s, '@') {
		return reason
	}
	dom := s[at+1:]
	for i := 1; i < len(dom)-1; i++ {
		if dom[i] == '.' {
			return ""
		}
	}
	return reason
}

// Phone accepts French numbers: a leading 0, +33 or 0033 prefix, then a
// non-zero digit and four two-digit groups, with optional spaces, dots or
// dashes between groups.
func Phone(s string) string {
	const reason = "Numéro invalide (ex: 06 12 34 56 78)"
	rest := s
	switch {
	case strings.HasPrefix(rest, "+33"):
		rest = rest[3:]
	case strings.HasPrefix(rest, "0033"):
		rest = rest[4:]
	case strings.HasPrefix(rest, "0"):
		rest = rest[1:]
	default:
		return reason
	}
	if rest == "" || rest[0] < '1' || rest[0] > '9' {
		return reason
	}
	rest = rest[1:]
	for range 4 {
		rest = strings.TrimLeft(rest, " \t.-")
		if len(rest) < 2 || !isDigit(rest[0]) || !isDigit(rest[1]) {
			return reason
		}
		rest = rest[2:]
	}
	if rest != "" {
		return reason
	}
	return ""
}

// NormalizeBankCode strips spaces and upper-cases an IBAN or BIC as typed.
func NormalizeBankCode(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// IBAN checks structural validity and the ISO 13616 mod-97 checksum, plus
// the current business rule restricting donors to French (FR) accounts.
// The input is normalized first, so "FR76 3000 ..." and "fr763000..." are
// equivalent.
func IBAN(s string) string {
	iban := NormalizeBankCode(s)
	if !ibanChecksumOK(iban) {
		return "IBAN invalide. Veuillez vérifier votre saisie."
	}
	if !strings.HasPrefix(iban, "FR") || len(iban) != 27 {
		return "Seuls les IBAN français (FR) sont acceptés pour le moment."
	}
	return ""
}

func ibanChecksumOK(iban string) bool {
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	if !isUpper(iban[0]) || !isUpper(iban[1]) || !isDigit(iban[2]) || !isDigit(iban[3]) {
		return false
	}
	// Move the country code and check digits to the end, substitute A=10 ..
	// Z=35, and reduce modulo 97 as we go.
	rearranged := iban[4:] + iban[:4]
	rem := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		switch {
		case isDigit(c):
			rem = (rem*10 + int(c-'0')) % 97
		case isUpper(c):
			n := int(c-'A') + 10
			rem = (rem*100 + n) % 97
		default:
			return false
		}
	}
	return rem == 1
}

// BIC checks the 8-or-11-character structure: four-letter bank code,
// two-letter country code, two-character location code and an optional
// three-character branch code. Input is normalized first.
func BIC(s string) string {
	const reason = "BIC invalide. Veuillez vérifier votre code BIC."
	bic := NormalizeBankCode(s)
	if len(bic) != 8 && len(bic) != 11 {
		return reason
	}
	for i := 0; i < 6; i++ {
		if !isUpper(bic[i]) {
			return reason
		}
	}
	for i := 6; i < len(bic); i++ {
		if !isUpper(bic[i]) && !isDigit(bic[i]) {
			return reason
		}
	}
	return ""
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
