package process

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	requireBinary(t, "sh")
	r := NewRunner(5*time.Second, quietLogger())

	res := r.Run(context.Background(), []string{"sh", "-c", `echo "  out  "; echo err 1>&2; exit 3`})

	require.True(t, res.OK(), "non-zero exit is still a success")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
	assert.Equal(t, `sh -c 'echo "  out  "; echo err 1>&2; exit 3'`, res.Command)
	assert.Greater(t, res.Elapsed, time.Duration(0))
}

func TestRunTimeout(t *testing.T) {
	requireBinary(t, "sleep")
	r := NewRunner(200*time.Millisecond, quietLogger())

	start := time.Now()
	res := r.Run(context.Background(), []string{"sleep", "10"})

	assert.Equal(t, domain.ErrorTimeout, res.Kind())
	assert.Equal(t, "sleep 10", res.Command)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunBinaryNotFound(t *testing.T) {
	r := NewRunner(time.Second, quietLogger())

	res := r.Run(context.Background(), []string{"definitely-not-a-forensics-tool-xyz", "/tmp/a"})

	assert.Equal(t, domain.ErrorBinaryNotFound, res.Kind())
	assert.Equal(t, "definitely-not-a-forensics-tool-xyz /tmp/a", res.Command)
}

func TestRunEmptyCommand(t *testing.T) {
	r := NewRunner(time.Second, quietLogger())

	res := r.Run(context.Background(), nil)

	assert.Equal(t, domain.ErrorOther, res.Kind())
	assert.Equal(t, "empty command", res.Failure.Message)
}

func TestRunCanceledContext(t *testing.T) {
	requireBinary(t, "sh")
	r := NewRunner(time.Second, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.Run(ctx, []string{"sh", "-c", "true"})

	assert.Equal(t, domain.ErrorOther, res.Kind())
	assert.Contains(t, res.Failure.Message, "canceled")
}

func TestRunCanceledWhileRunning(t *testing.T) {
	requireBinary(t, "sleep")
	r := NewRunner(10*time.Second, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	res := r.Run(ctx, []string{"sleep", "10"})

	assert.Equal(t, domain.ErrorOther, res.Kind())
	assert.Contains(t, res.Failure.Message, "canceled")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunInvalidUTF8IsReplaced(t *testing.T) {
	requireBinary(t, "printf")
	r := NewRunner(time.Second, quietLogger())

	res := r.Run(context.Background(), []string{"printf", `a\377b`})

	require.True(t, res.OK())
	assert.Equal(t, "a�b", res.Stdout)
}

func TestNewRunnerDefaults(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewRunner(0, nil).Timeout())
}
