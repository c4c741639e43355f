package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-forensics/internal/application"
	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/db/memory"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/storage"
)

type fakeArtifacts struct {
	keys []string
	err  error
}

func (f *fakeArtifacts) Upload(_ context.Context, localPath, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	return "http://minio.local/reports/" + key, nil
}

type fixture struct {
	svc      *Service
	dir      *storage.Dir
	runner   *fakeRunner
	repo     *memory.ReportRepository
	failures *memory.FailureRepository
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir, err := storage.NewDir(t.TempDir())
	require.NoError(t, err)

	runner := &fakeRunner{answers: map[string]domain.ToolResult{
		"file": domain.Succeeded("", 0, "PNG image data, 10 x 10", "", time.Millisecond),
	}}
	repo := memory.NewReportRepository(0)
	fails := memory.NewFailureRepository()
	return &fixture{
		svc: &Service{
			Dispatcher: newDispatcher(t, runner),
			Uploads:    dir,
			Reports:    dir,
			Repo:       repo,
			Failures:   fails,
			Clock:      application.FixedClock{T: fixedNow},
		},
		dir:      dir,
		runner:   runner,
		repo:     repo,
		failures: fails,
	}
}

func TestAnalyzeUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep, err := f.svc.Analyze(ctx, AnalyzeCommand{
		Filename: "../../holiday.jpg",
		Content:  strings.NewReader("not really a jpeg"),
		Tools:    []string{"file", "nonexistent-tool"},
	})
	require.NoError(t, err)

	assert.Equal(t, "holiday.jpg", rep.File)
	assert.Equal(t, 12, rep.Score)
	assert.Equal(t, domain.VerdictClean, rep.Verdict)
	assert.Equal(t, "holiday.jpg_analysis.json", rep.JSONName)
	assert.Equal(t, fixedNow, rep.CreatedAt)
	assert.NotEmpty(t, rep.ID)

	// the tool got the stored path
	require.Len(t, f.runner.calls, 1)
	assert.Equal(t, filepath.Join(f.dir.Root(), "holiday.jpg"), f.runner.calls[0][2])

	// downloadable document
	rc, err := f.svc.OpenReport(rep.JSONName)
	require.NoError(t, err)
	defer rc.Close()
	var doc map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rc).Decode(&doc))
	assert.Len(t, doc, 5)
	assert.JSONEq(t, `{"error":"tool-not-configured"}`, string(mustGet(t, doc, "results", "nonexistent-tool")))

	// indexed and failure logged
	stored, err := f.svc.Get(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.Score, stored.Score)

	fails, err := f.svc.FailuresFor(ctx, rep.ID, 10)
	require.NoError(t, err)
	require.Len(t, fails, 1)
	assert.Equal(t, "nonexistent-tool", fails[0].Tool)
	assert.Equal(t, string(domain.ErrorToolNotConfigured), fails[0].Kind)
}

func mustGet(t *testing.T, doc map[string]json.RawMessage, key, sub string) json.RawMessage {
	t.Helper()
	var inner map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc[key], &inner))
	return inner[sub]
}

func TestAnalyzeCollidingUploadsKeepBoth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Analyze(ctx, AnalyzeCommand{Filename: "a.png", Content: strings.NewReader("1")})
	require.NoError(t, err)
	second, err := f.svc.Analyze(ctx, AnalyzeCommand{Filename: "a.png", Content: strings.NewReader("2")})
	require.NoError(t, err)

	assert.Equal(t, "a.png", first.File)
	assert.Equal(t, "a_1.png", second.File)
	assert.Equal(t, "a_1.png_analysis.json", second.JSONName)

	data, err := os.ReadFile(filepath.Join(f.dir.Root(), "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))
}

func TestAnalyzeUserErrors(t *testing.T) {
	f := newFixture(t)
	f.svc.SamplePath = filepath.Join(t.TempDir(), "missing.png")

	tests := []struct {
		name string
		cmd  AnalyzeCommand
		want error
	}{
		{"sample missing", AnalyzeCommand{UseSample: true}, domain.ErrSampleMissing},
		{"no upload", AnalyzeCommand{}, domain.ErrNoUpload},
		{"empty filename", AnalyzeCommand{Content: strings.NewReader("x")}, domain.ErrEmptyFilename},
		{"dot dot filename", AnalyzeCommand{Filename: "..", Content: strings.NewReader("x")}, domain.ErrEmptyFilename},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Analyze(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.runner.calls)
}

func TestAnalyzeSample(t *testing.T) {
	f := newFixture(t)
	sample := filepath.Join(t.TempDir(), "landscape.png")
	require.NoError(t, os.WriteFile(sample, []byte("png"), 0o644))
	f.svc.SamplePath = sample

	rep, err := f.svc.Analyze(context.Background(), AnalyzeCommand{UseSample: true, Tools: []string{"file"}})
	require.NoError(t, err)

	assert.Equal(t, "landscape.png", rep.File)
	assert.Equal(t, 0, rep.Score)
	assert.Equal(t, sample, f.runner.calls[0][2])
}

func TestAnalyzeArtifactUpload(t *testing.T) {
	f := newFixture(t)
	arts := &fakeArtifacts{}
	f.svc.Artifacts = arts

	rep, err := f.svc.Analyze(context.Background(), AnalyzeCommand{Filename: "x.png", Content: strings.NewReader("x")})
	require.NoError(t, err)

	require.Len(t, arts.keys, 1)
	assert.Equal(t, "reports/"+string(rep.ID)+"/x.png_analysis.json", arts.keys[0])
	assert.Equal(t, "http://minio.local/reports/"+arts.keys[0], rep.ArtifactURL)
}

func TestAnalyzeArtifactFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.svc.Artifacts = &fakeArtifacts{err: errors.New("bucket gone")}

	rep, err := f.svc.Analyze(context.Background(), AnalyzeCommand{Filename: "x.png", Content: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Empty(t, rep.ArtifactURL)
}

func TestAnalyzeWithoutOptionalStores(t *testing.T) {
	f := newFixture(t)
	f.svc.Repo = nil
	f.svc.Failures = nil

	_, err := f.svc.Analyze(context.Background(), AnalyzeCommand{
		Filename: "x.png",
		Content:  strings.NewReader("x"),
		Tools:    []string{"nonexistent-tool"},
	})
	require.NoError(t, err)

	list, err := f.svc.FailuresFor(context.Background(), "whatever", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOpenReportNotFound(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"nope_analysis.json", "../etc/passwd", ""} {
		_, err := f.svc.OpenReport(name)
		assert.ErrorIs(t, err, domain.ErrReportNotFound, name)
	}
}

func TestOpenReportStreamsFile(t *testing.T) {
	f := newFixture(t)
	rep, err := f.svc.Analyze(context.Background(), AnalyzeCommand{Filename: "x.png", Content: strings.NewReader("x")})
	require.NoError(t, err)

	rc, err := f.svc.OpenReport(rep.JSONName)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"file\": \"x.png\""))
}
