package process

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowlab/studioport/internal/domain/model"
)

type testLogger struct{}

func (testLogger) Debug(format string, args ...interface{}) {}
func (testLogger) Info(format string, args ...interface{})  {}
func (testLogger) Warn(format string, args ...interface{})  {}
func (testLogger) Error(format string, args ...interface{}) {}
func (testLogger) SetLevel(level string)                    {}
func (testLogger) Close() error                             { return nil }

func testSpec(command string) model.ServiceSpec {
	return model.ServiceSpec{
		Command:      command,
		Dir:          ".",
		ReadyTimeout: 2 * time.Second,
		GraceDelay:   20 * time.Millisecond,
		StopTimeout:  time.Second,
	}
}

func waitClosed(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal(msg)
	}
}

func TestStartRunsCommand(t *testing.T) {
	runner := NewRunner(testLogger{})

	proc, err := runner.Start(context.Background(), testSpec("sleep 5"))
	require.NoError(t, err)
	assert.Greater(t, proc.Pid(), 0)

	require.NoError(t, proc.WaitReady(context.Background()), "no probe address means the grace delay")

	select {
	case <-proc.Done():
		t.Fatal("the process should still be running")
	default:
	}

	require.NoError(t, proc.Stop())
	waitClosed(t, proc.Done(), "the process did not stop")
}

func TestStartValidatesSpec(t *testing.T) {
	runner := NewRunner(testLogger{})
	_, err := runner.Start(context.Background(), model.ServiceSpec{})
	require.Error(t, err)
}

func TestStartHonorsCancelledContext(t *testing.T) {
	runner := NewRunner(testLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.Start(ctx, testSpec("sleep 5"))
	require.Error(t, err)
}

func TestExitIsObserved(t *testing.T) {
	runner := NewRunner(testLogger{})

	proc, err := runner.Start(context.Background(), testSpec("exit 3"))
	require.NoError(t, err)

	waitClosed(t, proc.Done(), "the exit was never observed")
	require.Error(t, proc.Err())
	assert.Contains(t, proc.Err().Error(), "exit status 3")

	require.NoError(t, proc.Stop(), "stopping an exited process is a no-op")
}

func TestWaitReadyProbesAddress(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	spec := testSpec("sleep 5")
	spec.ProbeAddr = listener.Addr().String()
	runner := NewRunner(testLogger{})

	proc, err := runner.Start(context.Background(), spec)
	require.NoError(t, err)
	defer proc.Stop()

	require.NoError(t, proc.WaitReady(context.Background()))
}

func TestWaitReadyTimesOut(t *testing.T) {
	// Grab a port and release it so nothing answers there.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := listener.Addr().String()
	listener.Close()

	spec := testSpec("sleep 5")
	spec.ProbeAddr = deadAddr
	spec.ReadyTimeout = 300 * time.Millisecond
	runner := NewRunner(testLogger{})

	proc, err := runner.Start(context.Background(), spec)
	require.NoError(t, err)
	defer proc.Stop()

	err = proc.WaitReady(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}

func TestWaitReadyFailsWhenProcessDies(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := listener.Addr().String()
	listener.Close()

	spec := testSpec("exit 2")
	spec.ProbeAddr = deadAddr
	runner := NewRunner(testLogger{})

	proc, err := runner.Start(context.Background(), spec)
	require.NoError(t, err)

	err = proc.WaitReady(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited during startup")
}

func TestWaitReadyHonorsContext(t *testing.T) {
	spec := testSpec("sleep 5")
	spec.GraceDelay = 5 * time.Second
	runner := NewRunner(testLogger{})

	proc, err := runner.Start(context.Background(), spec)
	require.NoError(t, err)
	defer proc.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	err = proc.WaitReady(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStopIsIdempotent(t *testing.T) {
	runner := NewRunner(testLogger{})

	proc, err := runner.Start(context.Background(), testSpec("sleep 5"))
	require.NoError(t, err)

	require.NoError(t, proc.Stop())
	waitClosed(t, proc.Done(), "the process did not stop")
	require.NoError(t, proc.Stop())
}

func TestStopEscalatesToKill(t *testing.T) {
	spec := testSpec("trap '' TERM; while :; do sleep 0.05; done")
	spec.StopTimeout = 200 * time.Millisecond
	runner := NewRunner(testLogger{})

	proc, err := runner.Start(context.Background(), spec)
	require.NoError(t, err)

	started := time.Now()
	require.NoError(t, proc.Stop())
	waitClosed(t, proc.Done(), "the process survived the kill")
	assert.GreaterOrEqual(t, time.Since(started), spec.StopTimeout,
		"graceful termination gets its full window first")
}
