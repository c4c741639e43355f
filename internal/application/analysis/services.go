package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/automaton-forensics/internal/application"
	"github.com/bryanwahyu/automaton-forensics/internal/domain/failures"
	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

// Service implements use-cases untuk analisis file.
// Repo, Artifacts and Failures are optional.
type Service struct {
	Dispatcher *Dispatcher
	Uploads    domain.UploadStore
	Reports    domain.ReportStore
	Repo       domain.Repository
	Artifacts  domain.ArtifactStore
	Failures   failures.Repository
	Clock      application.Clock
	SamplePath string
	Log        logrus.FieldLogger
}

//
// ==== USE CASES ====
//

// AnalyzeCommand untuk satu request analisis
type AnalyzeCommand struct {
	UseSample bool
	Filename  string
	Content   io.Reader
	Tools     []string
}

// Analyze resolve file → jalankan tools → scoring → simpan laporan.
// Tool problems never fail the call; only an unusable target or an
// unwritable report does.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.Report, error) {
	path, filename, err := s.resolveTarget(cmd)
	if err != nil {
		return nil, err
	}

	tools := make([]domain.ToolName, 0, len(cmd.Tools))
	for _, t := range cmd.Tools {
		tools = append(tools, domain.ToolName(t))
	}

	log := s.logger().WithField("file", filename)
	results := s.Dispatcher.Dispatch(ctx, path, tools)
	assessment := domain.Score(results, filename)

	report := &domain.Report{
		ID:        domain.ReportID(uuid.New().String()),
		File:      filename,
		Score:     assessment.Score,
		Verdict:   assessment.Verdict,
		Reasons:   assessment.Reasons,
		Results:   results,
		JSONName:  domain.ReportName(filename),
		CreatedAt: s.now(),
	}

	localPath, err := s.Reports.Write(report.JSONName, report.Document())
	if err != nil {
		return nil, fmt.Errorf("write report %s: %w", report.JSONName, err)
	}

	if s.Artifacts != nil {
		key := fmt.Sprintf("reports/%s/%s", report.ID, report.JSONName)
		url, err := s.Artifacts.Upload(ctx, localPath, key)
		if err != nil {
			// laporan lokal tetap ada, jadi cukup dicatat
			log.WithError(err).Warn("report artifact upload failed")
		} else {
			report.ArtifactURL = url
		}
	}

	if s.Repo != nil {
		if err := s.Repo.Save(ctx, report); err != nil {
			log.WithError(err).Warn("report index save failed")
		}
	}
	s.recordFailures(ctx, report)

	log.WithFields(logrus.Fields{
		"report_id": report.ID,
		"score":     report.Score,
		"verdict":   report.Verdict,
		"tools":     len(results),
	}).Info("analysis finished")
	return report, nil
}

func (s *Service) resolveTarget(cmd AnalyzeCommand) (string, string, error) {
	if cmd.UseSample {
		if s.SamplePath == "" {
			return "", "", domain.ErrSampleMissing
		}
		if _, err := os.Stat(s.SamplePath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", "", domain.ErrSampleMissing
			}
			return "", "", fmt.Errorf("stat sample: %w", err)
		}
		return s.SamplePath, filepath.Base(s.SamplePath), nil
	}

	if cmd.Content == nil {
		return "", "", domain.ErrNoUpload
	}
	if cmd.Filename == "" {
		return "", "", domain.ErrEmptyFilename
	}
	path, stored, err := s.Uploads.Save(cmd.Filename, cmd.Content)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyFilename) {
			return "", "", err
		}
		return "", "", fmt.Errorf("save upload: %w", err)
	}
	return path, stored, nil
}

func (s *Service) recordFailures(ctx context.Context, report *domain.Report) {
	if s.Failures == nil {
		return
	}
	for tool, res := range report.Results {
		if res.OK() {
			continue
		}
		f := &failures.ToolFailure{
			ReportID:  string(report.ID),
			File:      report.File,
			Tool:      string(tool),
			Kind:      string(res.Failure.Kind),
			Command:   res.Command,
			Message:   res.Failure.Message,
			CreatedAt: report.CreatedAt,
		}
		if err := s.Failures.Save(ctx, f); err != nil {
			s.logger().WithError(err).WithField("tool", tool).Warn("tool failure save failed")
		}
	}
}

// OpenReport buka file JSON laporan untuk di-download
func (s *Service) OpenReport(name string) (io.ReadCloser, error) {
	rc, err := s.Reports.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrReportNotFound
		}
		return nil, err
	}
	return rc, nil
}

// Get ambil 1 laporan by id
func (s *Service) Get(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	return s.Repo.Get(ctx, id)
}

// Latest ambil N laporan terakhir
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.Report, error) {
	return s.Repo.Latest(ctx, limit)
}

// Paginate daftar laporan per halaman
func (s *Service) Paginate(ctx context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, page, pageSize)
}

// Summary rekap verdict N hari terakhir
func (s *Service) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	return s.Repo.Summary(ctx, sinceDays)
}

// FailuresFor daftar tool yang gagal pada satu laporan
func (s *Service) FailuresFor(ctx context.Context, id domain.ReportID, limit int) ([]*failures.ToolFailure, error) {
	if s.Failures == nil {
		return []*failures.ToolFailure{}, nil
	}
	return s.Failures.ListByReport(ctx, string(id), limit)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
