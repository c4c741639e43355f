package ai

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/automaton-forensics/internal/application"
	"github.com/bryanwahyu/automaton-forensics/internal/domain/ai"
	"github.com/bryanwahyu/automaton-forensics/internal/domain/analyst"
	"github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
	"github.com/bryanwahyu/automaton-forensics/internal/infra/ai/prompt"
)

// Service runs AI triage over stored reports.
type Service struct {
	client  ai.Client
	repo    analyst.Repository
	reports forensics.Repository
	clock   application.Clock
	log     logrus.FieldLogger
}

func NewService(client ai.Client, repo analyst.Repository, reports forensics.Repository, clock application.Clock, log logrus.FieldLogger) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{client: client, repo: repo, reports: reports, clock: clock, log: log}
}

// AnalyzeAndStore ambil laporan → kirim ke AI → simpan hasil triage
func (s *Service) AnalyzeAndStore(ctx context.Context, reportID forensics.ReportID) (*analyst.Analysis, error) {
	rep, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}

	payload, err := prompt.CompactReport(rep.Document())
	if err != nil {
		return nil, err
	}
	answer, err := s.client.Triage(ctx, payload)
	if err != nil {
		return nil, err
	}
	if _, err := prompt.ParseTriage(answer); err != nil {
		// tetap disimpan; repo akan membungkus sebagai {"raw": ...}
		s.log.WithError(err).WithField("report_id", reportID).Warn("triage answer does not match schema")
	}

	a := &analyst.Analysis{
		ID:        analyst.AnalysisID(uuid.New().String()),
		ReportID:  string(rep.ID),
		File:      rep.File,
		Model:     s.client.Model(),
		Result:    answer,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save triage: %w", err)
	}
	s.log.WithFields(logrus.Fields{"report_id": reportID, "triage_id": a.ID}).Info("triage stored")
	return a, nil
}

// ListAnalyses returns stored triage results, newest first.
func (s *Service) ListAnalyses(ctx context.Context, page, pageSize int) ([]*analyst.Analysis, error) {
	return s.repo.Paginate(ctx, page, pageSize)
}

// Latest returns the newest triage for a report, nil when there is none.
func (s *Service) Latest(ctx context.Context, reportID forensics.ReportID) (*analyst.Analysis, error) {
	return s.repo.LatestByReport(ctx, string(reportID))
}
