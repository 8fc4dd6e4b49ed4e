//go:build !linux

package main

import "os"

// exitRestart asks the supervisor to start the daemon again (EX_TEMPFAIL).
const exitRestart = 75

func restart() error {
	os.Exit(exitRestart)
	return nil
}
