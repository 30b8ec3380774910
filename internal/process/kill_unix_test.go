//go:build !windows

package process

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"
	"time"
)

func TestKillTree_KillsGroup(t *testing.T) {
	t.Parallel()

	// The shell forks a sleeping grandchild that shares its process group.
	cmd := exec.Command("sh", "-c", "sleep 30 & wait")
	Isolate(cmd)
	if err := cmd.Start(); err != nil {
		t.Skipf("sh unavailable: %v", err)
	}

	if err := KillTree(cmd); err != nil {
		t.Fatalf("KillTree() = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("Wait() = %v, want exit error", err)
		}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signal() != syscall.SIGKILL {
			t.Errorf("signal = %v, want SIGKILL", ws.Signal())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("child still running after KillTree")
	}
}

func TestKillTree_AfterExit(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("true")
	Isolate(cmd)
	if err := cmd.Run(); err != nil {
		t.Skipf("true unavailable: %v", err)
	}
	if err := KillTree(cmd); err != nil {
		t.Errorf("KillTree() after exit = %v, want nil", err)
	}
}
