package supervisor

import (
	"os"
	"syscall"
)

// processAlive reports whether pid names a live process, via the
// conventional Signal(0) existence probe (sends no actual signal).
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func sigterm() os.Signal {
	return syscall.SIGTERM
}
