package service

import (
	"context"

	"github.com/stemsi/mcq-exam/internal/repository"
)

// SummaryReader is implemented by repository.DashboardRepository.
type SummaryReader interface {
	GetSummary(ctx context.Context) (*repository.DashboardSummary, error)
}

// DashboardData consolidates the metrics for the admin dashboard.
type DashboardData struct {
	repository.DashboardSummary
	InactiveExams int `json:"inactive_exams"`
}

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	repo SummaryReader
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo SummaryReader) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboardData returns the headline counters.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	summary, err := s.repo.GetSummary(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardData{
		DashboardSummary: *summary,
		InactiveExams:    summary.TotalExams - summary.ActiveExams,
	}, nil
}
