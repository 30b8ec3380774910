//go:build windows

package main

import "os"

// shutdownSignals stop a running command.
// Note: syscall.SIGTERM is not available on Windows.
var shutdownSignals = []os.Signal{os.Interrupt}
