package irc

import "time"

// Clock is the shared server notion of the current time in seconds.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() int64

func (f ClockFunc) Now() int64 { return f() }

// SystemClock reads the wall clock.
var SystemClock = ClockFunc(func() int64 { return time.Now().Unix() })
