package irc

import (
	"strings"

	"golang.org/x/text/cases"
)

// rfc1459Fold maps the characters that RFC1459 treats as the upper case forms of {}|^.
var rfc1459Fold = strings.NewReplacer(
	"[", "{",
	"]", "}",
	"\\", "|",
	"~", "^",
)

// Casefold returns the canonical form of an IRC name for comparison.
// A Caser is stateful, so a new one is made for each call.
func Casefold(name string) string {
	return rfc1459Fold.Replace(cases.Fold().String(name))
}

// ChannelsEqual compares two channel names under IRC casefolding.
func ChannelsEqual(a, b string) bool {
	if a == b {
		return true
	}
	return Casefold(a) == Casefold(b)
}
