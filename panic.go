package main

import (
	"runtime/debug"
)

// handlePanic reports a panic with its stack and turns it into a failing exit code
func handlePanic(code *int) {
	if r := recover(); r != nil {
		errorf("%v", r)
		errorf(string(debug.Stack()))
		*code = exitFailure
	}
}
