package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-forensics/internal/domain/analyst"
	"github.com/bryanwahyu/automaton-forensics/internal/domain/failures"
	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

var created = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (sqlmock.Sqlmock, *ReportRepository, *FailureRepository, *AnalystRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return mock, NewReportRepository(db), NewFailureRepository(db), NewAnalystRepository(db)
}

var reportCols = []string{"id", "file", "score", "verdict", "reasons_json", "results_json", "json_name", "artifact_url", "created_at"}

func TestReportSaveOnConflict(t *testing.T) {
	mock, repo, _, _ := newMock(t)
	rep := &domain.Report{
		ID:        "r1",
		File:      "bin.exe.png",
		Score:     60,
		Verdict:   domain.VerdictMalicious,
		Reasons:   []string{"Found MZ header in strings output"},
		Results:   domain.Results{domain.ToolFile: domain.Succeeded("file /u/bin.exe.png", 0, "PE32", "", 0)},
		JSONName:  "bin.exe.png_analysis.json",
		CreatedAt: created,
	}
	reasons, results, err := encodeReport(rep)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)") + "(.|\n)*ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs("r1", "bin.exe.png", 60, "Likely Malicious", reasons, results, "bin.exe.png_analysis.json", "", created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), rep))
}

func TestReportGetDecodesResults(t *testing.T) {
	mock, repo, _, _ := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id=$1 LIMIT 1")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(reportCols).AddRow(
			"r1", "a.png", 0, "Likely Clean", `[]`,
			`{"binwalk":{"error":"timeout"},"file":{"cmd":"file /u/a.png","returncode":0,"stdout":"PNG image data","stderr":""}}`,
			"a.png_analysis.json", "", created,
		))

	got, err := repo.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, got.Reasons)
	assert.Equal(t, domain.ErrorTimeout, got.Results[domain.ToolBinwalk].Kind())
	assert.Equal(t, "PNG image data", got.Results[domain.ToolFile].Stdout)
	assert.Equal(t, created, got.CreatedAt)
}

func TestReportGetNotFound(t *testing.T) {
	mock, repo, _, _ := newMock(t)

	mock.ExpectQuery("FROM forensic_reports WHERE id").WillReturnRows(sqlmock.NewRows(reportCols))

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestReportPaginateDefaults(t *testing.T) {
	mock, repo, _, _ := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(reportCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM forensic_reports")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	res, err := repo.Paginate(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 20, res.PageSize)
	assert.Zero(t, res.TotalPages)
	assert.NotNil(t, res.Data)
}

func TestReportSummaryFilters(t *testing.T) {
	mock, repo, _, _ := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE verdict = $1)")).
		WithArgs("Likely Malicious", "Possibly Suspicious", "Likely Clean", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"total", "m", "s", "c"}).AddRow(4, 0, 1, 3))

	s, err := repo.Summary(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{Total: 4, Suspicious: 1, Clean: 3}, s)
}

func TestFailureSaveReturningID(t *testing.T) {
	mock, _, repo, _ := newMock(t)
	f := &failures.ToolFailure{ReportID: "r1", Tool: "mat2", Kind: "binary-not-found", CreatedAt: created}

	mock.ExpectQuery(regexp.QuoteMeta("RETURNING id")).
		WithArgs("r1", "-", "mat2", "binary-not-found", "", "", created).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	require.NoError(t, repo.Save(context.Background(), f))
	assert.Equal(t, int64(7), f.ID)
}

func TestAnalystLatestByReport(t *testing.T) {
	mock, _, _, repo := newMock(t)
	cols := []string{"id", "report_id", "file", "model", "result_json", "created_at"}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE report_id=$1")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("t1", "r1", "a.png", "local-heuristic", `{"summary":"ok"}`, created))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE report_id=$1")).
		WithArgs("r2").
		WillReturnRows(sqlmock.NewRows(cols))

	got, err := repo.LatestByReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, &analyst.Analysis{ID: "t1", ReportID: "r1", File: "a.png", Model: "local-heuristic", Result: `{"summary":"ok"}`, CreatedAt: created}, got)

	none, err := repo.LatestByReport(context.Background(), "r2")
	require.NoError(t, err)
	assert.Nil(t, none)
}
