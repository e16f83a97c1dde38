package irc

import "math"

// MaxDuration is the longest ban duration in seconds. Longer durations are clamped to it, which
// keeps SetOn+Duration well inside int64.
const MaxDuration = math.MaxInt32

// durationUnits maps a unit suffix to its length in seconds.
var durationUnits = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 60 * 60,
	'd': 60 * 60 * 24,
	'w': 60 * 60 * 24 * 7,
	'y': 60 * 60 * 24 * 365,
}

// CalcDuration converts a duration string such as "1d2h30m" or "3600" to seconds.
// Digits without a trailing unit are seconds. Units are case-insensitive.
// A string containing an unknown unit returns 0. Results above MaxDuration are clamped.
func CalcDuration(s string) int64 {
	var total, subtotal int64

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			subtotal = min(subtotal*10+int64(c-'0'), MaxDuration)
			continue
		}

		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}

		multiplier, ok := durationUnits[c]
		if !ok {
			return 0
		}
		total = addDuration(total, subtotal, multiplier)
		subtotal = 0
	}

	return addDuration(total, subtotal, 1)
}

// addDuration returns total + n*unit, clamped to MaxDuration. total and n are at most MaxDuration.
func addDuration(total, n, unit int64) int64 {
	if n > (MaxDuration-total)/unit {
		return MaxDuration
	}

	return total + n*unit
}
