package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

// DefaultTimeout batas waktu per tool
const DefaultTimeout = 25 * time.Second

// waitDelay bounds how long Wait blocks on pipes held open by grandchildren
// after the tool itself has been killed.
const waitDelay = 2 * time.Second

// Runner executes one command without a shell.
type Runner struct {
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewRunner(timeout time.Duration, log logrus.FieldLogger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{timeout: timeout, log: log}
}

// Timeout returns the per-invocation limit.
func (r *Runner) Timeout() time.Duration { return r.timeout }

// Run jalankan argv sekali, tanpa retry. A non-zero exit code is still a
// success; only timeouts and launch problems become failures.
func (r *Runner) Run(ctx context.Context, argv []string) domain.ToolResult {
	display := shellquote.Join(argv...)
	if len(argv) == 0 || argv[0] == "" {
		return domain.Failed(display, domain.ErrorOther, "empty command")
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	// timeout membunuh seluruh process group, bukan hanya pid tool
	killProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	log := r.log.WithFields(logrus.Fields{"cmd": display, "elapsed": elapsed})

	// hanya batas waktu tool sendiri yang dihitung timeout
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		log.Warn("tool timed out")
		return domain.Failed(display, domain.ErrorTimeout, "")
	}

	exitCode := 0
	if err != nil {
		var ee *exec.ExitError
		switch {
		case ctx.Err() != nil:
			// dibatalkan caller, exit code dari kill tidak berarti
			log.WithError(err).Warn("tool canceled")
			return domain.Failed(display, domain.ErrorOther, fmt.Sprintf("canceled: %v", ctx.Err()))
		case errors.As(err, &ee):
			// ambil exit code
			exitCode = ee.ExitCode()
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			log.Debug("tool binary not found")
			return domain.Failed(display, domain.ErrorBinaryNotFound, "")
		default:
			log.WithError(err).Warn("tool failed to start")
			return domain.Failed(display, domain.ErrorOther, err.Error())
		}
	}

	log.WithField("exit_code", exitCode).Debug("tool finished")
	return domain.Succeeded(display, exitCode, clean(stdout.String()), clean(stderr.String()), elapsed)
}

func clean(s string) string {
	return strings.TrimSpace(strings.ToValidUTF8(s, "�"))
}
