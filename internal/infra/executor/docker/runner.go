package docker

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

// exit codes of `docker run` itself, not of the tool
const (
	exitDaemonError   = 125
	exitCannotInvoke  = 126
	exitCommandAbsent = 127
)

// containerPrefix names every sandbox container so it can be killed by name.
const containerPrefix = "forensics-"

// Runner runs each tool inside a throwaway container instead of on the
// host. Mounts are bind-mounted read-only at the same path, so the argv
// built by the registry works unchanged.
type Runner struct {
	inner  domain.Runner
	image  string
	mounts []string
	log    logrus.FieldLogger

	newName func() string
}

// NewRunner wraps inner (normally the process runner, which owns the
// timeout) with `docker run`.
func NewRunner(inner domain.Runner, image string, mounts []string, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	seen := make(map[string]bool, len(mounts))
	var uniq []string
	for _, m := range mounts {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		uniq = append(uniq, m)
	}
	return &Runner{
		inner:   inner,
		image:   image,
		mounts:  uniq,
		log:     log,
		newName: func() string { return containerPrefix + uuid.NewString() },
	}
}

// Argv returns the full docker command for a tool argv, running it in a
// container called name.
func (r *Runner) Argv(name string, argv []string) []string {
	out := []string{"docker", "run", "--rm", "--name", name, "--network", "none", "--read-only"}
	for _, m := range r.mounts {
		out = append(out, "-v", m+":"+m+":ro")
	}
	out = append(out, r.image)
	return append(out, argv...)
}

// Run reports the tool command, not the docker wrapper, so reports look
// the same with or without the sandbox.
func (r *Runner) Run(ctx context.Context, argv []string) domain.ToolResult {
	display := shellquote.Join(argv...)
	if len(argv) == 0 || argv[0] == "" {
		return domain.Failed(display, domain.ErrorOther, "empty command")
	}

	name := r.newName()
	res := r.inner.Run(ctx, r.Argv(name, argv))
	if !res.OK() && res.Kind() != domain.ErrorBinaryNotFound && (res.Kind() == domain.ErrorTimeout || ctx.Err() != nil) {
		// membunuh client docker tidak menghentikan container
		r.kill(ctx, name)
	}
	if !res.OK() {
		// docker binary sendiri tidak ada
		if res.Kind() == domain.ErrorBinaryNotFound {
			return domain.Failed(display, domain.ErrorOther, "docker not available")
		}
		return domain.Failed(display, res.Failure.Kind, res.Failure.Message)
	}

	switch res.ExitCode {
	case exitCommandAbsent:
		if looksLikeMissingExecutable(res.Stderr) {
			return domain.Failed(display, domain.ErrorBinaryNotFound, "")
		}
	case exitDaemonError, exitCannotInvoke:
		r.log.WithFields(logrus.Fields{"cmd": display, "image": r.image}).Warn("container start failed")
		return domain.Failed(display, domain.ErrorOther, firstLine(res.Stderr))
	}
	return domain.Succeeded(display, res.ExitCode, res.Stdout, res.Stderr, res.Elapsed)
}

// kill stops the container behind a timed-out or canceled run. It uses a
// context detached from ctx, which is already done at this point.
func (r *Runner) kill(ctx context.Context, name string) {
	res := r.inner.Run(context.WithoutCancel(ctx), []string{"docker", "kill", name})
	log := r.log.WithFields(logrus.Fields{"container": name, "image": r.image})
	switch {
	case !res.OK():
		log.WithField("error", res.Failure.Error()).Warn("docker kill failed")
	case res.ExitCode != 0:
		// container sudah selesai sendiri
		log.WithField("stderr", firstLine(res.Stderr)).Debug("docker kill: container already gone")
	default:
		log.Info("sandbox container killed")
	}
}

func looksLikeMissingExecutable(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "executable file not found") || strings.Contains(s, "no such file or directory")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if s == "" {
		return "container failed to start"
	}
	return s
}
