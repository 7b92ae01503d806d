package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/repository"
	"github.com/planease/engine/pkg/logger"
)

// SummaryService regenerates the read-optimised project summary from the
// project, its conditions and its documents.
type SummaryService interface {
	Rebuild(ctx context.Context, projectID string) (*models.ProjectSummary, error)
	Get(ctx context.Context, projectID string) (*models.ProjectSummary, error)
}

type summaryService struct {
	repos *repository.Repositories
	now   func() time.Time
}

func NewSummaryService(repos *repository.Repositories) SummaryService {
	return &summaryService{repos: repos, now: time.Now}
}

var _ SummaryService = (*summaryService)(nil)

func (s *summaryService) Rebuild(ctx context.Context, projectID string) (*models.ProjectSummary, error) {
	logger.L().Info("rebuild summary start", zap.String("project_id", projectID))

	project, err := s.repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	conds, err := s.repos.Conditions.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	docs, err := s.repos.Documents.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var counts models.Counts
	for _, c := range conds {
		counts.Conditions++
		if c.MaterialRequired {
			counts.MaterialConditions++
		}
	}
	for _, d := range docs {
		counts.AddDocument(d.Source)
	}

	summary := buildSummary(project, counts, models.FormatTime(s.now()))
	if err := s.repos.Summaries.Save(ctx, summary); err != nil {
		return nil, err
	}
	logger.L().Info("summary rebuilt",
		zap.String("project_id", projectID),
		zap.Int("conditions", counts.Conditions),
		zap.Int("documents", counts.Documents),
	)
	return summary, nil
}

func (s *summaryService) Get(ctx context.Context, projectID string) (*models.ProjectSummary, error) {
	return s.repos.Summaries.GetByProject(ctx, projectID)
}
