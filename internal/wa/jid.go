// Package wa normalizes WhatsApp identifiers and message metadata the way the
// backend (whatsapp-web.js) expects them.
package wa

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.mau.fi/whatsmeow/types"
)

// ErrInvalidRecipient is returned when a recipient cannot be turned into a chat id.
var ErrInvalidRecipient = errors.New("invalid recipient")

// NormalizeRecipient turns user input into a backend chat id. Plain phone numbers
// become "<digits>@c.us"; full ids are validated and s.whatsapp.net is rewritten
// to the legacy c.us server.
func NormalizeRecipient(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRecipient)
	}

	if !strings.Contains(input, "@") {
		digits := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, input)
		if digits == "" {
			return "", fmt.Errorf("%w: %q has no digits", ErrInvalidRecipient, input)
		}
		return types.NewJID(digits, types.LegacyUserServer).String(), nil
	}

	jid, err := types.ParseJID(input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	if jid.User == "" {
		return "", fmt.Errorf("%w: %q has no user part", ErrInvalidRecipient, input)
	}

	switch jid.Server {
	case types.LegacyUserServer, types.DefaultUserServer:
		return types.NewJID(jid.User, types.LegacyUserServer).String(), nil
	case types.GroupServer:
		return types.NewJID(jid.User, types.GroupServer).String(), nil
	default:
		return "", fmt.Errorf("%w: unsupported server %q", ErrInvalidRecipient, jid.Server)
	}
}

// IsGroup reports whether id addresses a group chat.
func IsGroup(id string) bool {
	if !strings.Contains(id, "@") {
		return false
	}
	jid, err := types.ParseJID(id)
	if err != nil {
		return false
	}
	return jid.Server == types.GroupServer
}

// DisplayNumber strips the server part for display. Groups get a suffix.
func DisplayNumber(id string) string {
	user, _, _ := strings.Cut(id, "@")
	if IsGroup(id) {
		return user + " (Group)"
	}
	return user
}

// ContactName is the label shown for a sender that has no push name.
func ContactName(id string) string {
	if IsGroup(id) {
		return "Group Chat"
	}
	return ""
}
