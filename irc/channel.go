package irc

import "strings"

// MaxChannelLen is the longest channel name accepted, including the leading '#'.
const MaxChannelLen = 64

// IsValidChannelName reports whether name is acceptable as a channel name.
func IsValidChannelName(name string) bool {
	if len(name) < 1 || len(name) > MaxChannelLen {
		return false
	}
	if name[0] != '#' {
		return false
	}

	return !strings.ContainsAny(name, " ,\a")
}
