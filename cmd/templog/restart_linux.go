package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// restart replaces the process image with a fresh copy of the daemon. The
// pid is kept, so the service manager sees no exit.
func restart() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	return unix.Exec(exe, os.Args, os.Environ())
}
