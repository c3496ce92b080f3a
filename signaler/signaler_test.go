package signaler

import (
	"os"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForInterrupt(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process signals are not supported on Windows")
	}
	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	for _, sig := range []os.Signal{syscall.SIGTERM, os.Interrupt} {
		c := WaitForInterrupt()
		require.NoError(t, proc.Signal(sig))
		select {
		case got := <-c:
			assert.Equal(t, sig, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("%s not received", sig)
		}
	}
}
