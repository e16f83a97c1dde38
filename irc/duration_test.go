package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{in: "1h", want: 3600},
		{in: "3600", want: 3600},
		{in: "1h3m2s", want: 3600 + 180 + 2},
		{in: "2d12", want: 2*86400 + 12},
		{in: "1w", want: 604800},
		{in: "1y", want: 31536000},
		{in: "1H30M", want: 5400},
		{in: "0", want: 0},
		{in: "", want: 0},
		{in: "5x", want: 0},
		{in: "1h5q", want: 0},
		{in: "9999999999999999999y", want: MaxDuration},
		{in: "99999999999999999999", want: MaxDuration},
		{in: "68y", want: 68 * 31536000},
		{in: "69y", want: MaxDuration},
		{in: "2147483647", want: MaxDuration},
		{in: "2147483647s1s", want: MaxDuration},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CalcDuration(tt.in))
		})
	}
}
