package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-forensics/internal/application"
	"github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/db/memory"
)

type recordingClient struct {
	payload string
	answer  string
	err     error
}

func (c *recordingClient) Triage(_ context.Context, reportJSON string) (string, error) {
	c.payload = reportJSON
	return c.answer, c.err
}

func (c *recordingClient) Model() string { return "test-model" }

func seed(t *testing.T) (*memory.ReportRepository, forensics.ReportID) {
	t.Helper()
	repo := memory.NewReportRepository(0)
	rep := &forensics.Report{
		ID:      "r1",
		File:    "a.png",
		Score:   25,
		Verdict: forensics.VerdictSuspicious,
		Reasons: []string{"Found MZ header inside file, possible embedded PE executable"},
		Results: forensics.Results{
			forensics.ToolStrings: forensics.Succeeded("strings -a a.png", 0, "MZ", "", time.Millisecond),
		},
	}
	require.NoError(t, repo.Save(context.Background(), rep))
	return repo, rep.ID
}

func TestAnalyzeAndStore(t *testing.T) {
	reports, id := seed(t)
	client := &recordingClient{answer: `{"file":"a.png","agree_with_verdict":true,"findings":[],"next_steps":[],"summary":"pe inside png"}`}
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(client, memory.NewAnalystRepository(), reports, application.FixedClock{T: now}, nil)

	a, err := svc.AnalyzeAndStore(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "r1", a.ReportID)
	assert.Equal(t, "a.png", a.File)
	assert.Equal(t, "test-model", a.Model)
	assert.Equal(t, now, a.CreatedAt)
	assert.True(t, strings.Contains(client.payload, `"verdict":"Possibly Suspicious"`))

	latest, err := svc.Latest(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, a.ID, latest.ID)

	list, err := svc.ListAnalyses(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAnalyzeAndStoreKeepsNonSchemaAnswer(t *testing.T) {
	reports, id := seed(t)
	svc := NewService(&recordingClient{answer: "not json"}, memory.NewAnalystRepository(), reports, nil, nil)

	a, err := svc.AnalyzeAndStore(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "not json", a.Result)
}

func TestAnalyzeAndStoreErrors(t *testing.T) {
	reports, id := seed(t)
	analyses := memory.NewAnalystRepository()

	svc := NewService(&recordingClient{}, analyses, reports, nil, nil)
	_, err := svc.AnalyzeAndStore(context.Background(), "missing")
	assert.ErrorIs(t, err, forensics.ErrReportNotFound)

	boom := errors.New("upstream down")
	svc = NewService(&recordingClient{err: boom}, analyses, reports, nil, nil)
	_, err = svc.AnalyzeAndStore(context.Background(), id)
	assert.ErrorIs(t, err, boom)

	list, err := analyses.Paginate(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
