package irc

import "strings"

// MaxNickLen is the longest nickname accepted.
const MaxNickLen = 30

// IsValidNick reports whether name is acceptable as a nickname. Characters that separate targets,
// match masks, or form a user prefix are refused anywhere; a nick may not start with something
// that parses as a channel, a trailing parameter or a numeric.
func IsValidNick(name string) bool {
	if len(name) < 1 || len(name) > MaxNickLen {
		return false
	}
	if strings.ContainsAny(name[:1], "#:0123456789") {
		return false
	}

	return !strings.ContainsAny(name, " ,*?!@\r\n\x00")
}
