// Package phone converts between local Israeli phone numbers and the
// gateway's chat address format.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	countryPrefix = "972"
	chatSuffix    = "@c.us"
	groupSuffix   = "@g.us"
)

// ToChatID formats a phone number as a Green API chat address.
// "0501234567" and "+972501234567" both become "972501234567@c.us".
// Malformed input is passed through digits-only, never rejected.
func ToChatID(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	cleaned := digits.String()
	if strings.HasPrefix(cleaned, "0") {
		cleaned = countryPrefix + cleaned[1:]
	}

	return cleaned + chatSuffix
}

// FromChatID extracts the local phone number from a chat address.
// "972501234567@c.us" becomes "0501234567"; non-Israeli numbers are
// returned without the suffix but otherwise unchanged.
func FromChatID(chatID string) string {
	p := strings.TrimSuffix(chatID, chatSuffix)
	p = strings.TrimSuffix(p, groupSuffix)

	if strings.HasPrefix(p, countryPrefix) {
		return "0" + p[len(countryPrefix):]
	}

	return p
}

// IsPlausible reports whether raw could be a phone number at all.
// Used to warn on manually entered numbers; the bot path never needs it
// because gateway-supplied addresses are well formed by construction.
// Possibility, not validity: this is a length/shape check, not a lookup
// against carrier numbering plans.
func IsPlausible(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}

	number, err := phonenumbers.Parse(trimmed, "IL")
	if err != nil {
		return false
	}

	return phonenumbers.IsPossibleNumber(number)
}
