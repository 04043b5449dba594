// Package assert panics on states that only a programming error can produce
package assert

import (
	"fmt"
)

// Length panics unless value is exactly expected bytes long
func Length(value string, expected int) {
	if len(value) != expected {
		msg := fmt.Sprintf("assert.Length expected %d actual %d", expected, len(value))
		panic(msg)
	}
}

// That panics with the formatted message when cond is false
func That(cond bool, format string, args ...any) {
	if !cond {
		panic("assert.That: " + fmt.Sprintf(format, args...))
	}
}
