package util

import "fmt"

// Panicf panics with a fmt.Sprintf-formatted message. Reserved for states
// that can only mean a programming error, like an unknown event code.
func Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}
