//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop a running command. SIGHUP covers a closed terminal
// under `watch` and `serve`.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
