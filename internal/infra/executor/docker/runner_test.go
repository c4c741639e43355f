package docker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

// stubRunner answers the docker run call with res and every later call
// (docker kill) with a plain success.
type stubRunner struct {
	got   []string
	calls [][]string
	ctxs  []context.Context
	res   domain.ToolResult
}

func (s *stubRunner) Run(ctx context.Context, argv []string) domain.ToolResult {
	s.calls = append(s.calls, argv)
	s.ctxs = append(s.ctxs, ctx)
	if len(s.calls) > 1 {
		return domain.Succeeded("", 0, "", "", 0)
	}
	s.got = argv
	return s.res
}

func TestArgvMountsReadOnly(t *testing.T) {
	r := NewRunner(&stubRunner{}, "forensics/tools:1", []string{"/srv/uploads", "", "/srv/uploads", "/mnt/data"}, nil)

	assert.Equal(t, []string{
		"docker", "run", "--rm", "--name", "forensics-test", "--network", "none", "--read-only",
		"-v", "/srv/uploads:/srv/uploads:ro",
		"-v", "/mnt/data:/mnt/data:ro",
		"forensics/tools:1",
		"exiftool", "/srv/uploads/a.png",
	}, r.Argv("forensics-test", []string{"exiftool", "/srv/uploads/a.png"}))
}

func TestRunReportsToolCommand(t *testing.T) {
	inner := &stubRunner{res: domain.Succeeded("docker run ...", 1, "out", "warn", time.Second)}
	r := NewRunner(inner, "img", []string{"/u"}, nil)

	res := r.Run(context.Background(), []string{"file", "-k", "/u/a b.png"})

	require.True(t, res.OK())
	assert.Equal(t, "file -k '/u/a b.png'", res.Command)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "docker", inner.got[0])
	assert.Len(t, inner.calls, 1, "no kill after a normal exit")
}

func TestRunNamesEachContainer(t *testing.T) {
	inner := &stubRunner{res: domain.Succeeded("", 0, "", "", 0)}
	r := NewRunner(inner, "img", nil, nil)

	r.Run(context.Background(), []string{"file", "/u/a"})
	first := inner.got
	inner.calls = nil
	r.Run(context.Background(), []string{"file", "/u/a"})

	require.Equal(t, "--name", first[3])
	assert.True(t, strings.HasPrefix(first[4], "forensics-"))
	assert.NotEqual(t, first[4], inner.got[4])
}

func TestRunKillsContainerOnTimeout(t *testing.T) {
	inner := &stubRunner{res: domain.Failed("", domain.ErrorTimeout, "")}
	r := NewRunner(inner, "img", nil, nil)
	r.newName = func() string { return "forensics-fixed" }

	res := r.Run(context.Background(), []string{"binwalk", "/u/a"})

	assert.Equal(t, domain.ErrorTimeout, res.Kind())
	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"docker", "kill", "forensics-fixed"}, inner.calls[1])
}

func TestRunKillsContainerOnCancel(t *testing.T) {
	inner := &stubRunner{res: domain.Failed("", domain.ErrorOther, "canceled: context canceled")}
	r := NewRunner(inner, "img", nil, nil)
	r.newName = func() string { return "forensics-fixed" }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Run(ctx, []string{"binwalk", "/u/a"})

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"docker", "kill", "forensics-fixed"}, inner.calls[1])
	assert.NoError(t, inner.ctxs[1].Err(), "kill must not inherit the canceled context")
}

func TestRunMapsContainerErrors(t *testing.T) {
	tests := []struct {
		name  string
		inner domain.ToolResult
		kind  domain.ErrorKind
	}{
		{
			"tool missing in image",
			domain.Succeeded("", 127, "", `exec: "binwalk": executable file not found in $PATH`, 0),
			domain.ErrorBinaryNotFound,
		},
		{
			"daemon error",
			domain.Succeeded("", 125, "", "Unable to find image 'img:latest' locally\nerror", 0),
			domain.ErrorOther,
		},
		{
			"timeout passes through",
			domain.Failed("", domain.ErrorTimeout, ""),
			domain.ErrorTimeout,
		},
		{
			"docker itself missing",
			domain.Failed("", domain.ErrorBinaryNotFound, ""),
			domain.ErrorOther,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(&stubRunner{res: tt.inner}, "img", nil, nil)
			res := r.Run(context.Background(), []string{"binwalk", "/u/a"})
			assert.Equal(t, tt.kind, res.Kind())
			assert.Equal(t, "binwalk /u/a", res.Command)
		})
	}
}

func TestRunTool127IsStillSuccess(t *testing.T) {
	// a tool may exit 127 on its own; without docker's message it is kept
	r := NewRunner(&stubRunner{res: domain.Succeeded("", 127, "", "", 0)}, "img", nil, nil)
	res := r.Run(context.Background(), []string{"sh", "-c", "exit 127"})
	require.True(t, res.OK())
	assert.Equal(t, 127, res.ExitCode)
}
