// Package velocity tracks how many applications an applicant has filed
// within a time window. The count feeds the rapid-application fraud rule.
package velocity

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// DefaultWindow is the lookback for the rapid-application signal.
const DefaultWindow = 30 * 24 * time.Hour

// Service counts recent applications per applicant. When a cache is
// available the count is maintained as a rolling counter; the repository is
// the fallback source of truth.
type Service struct {
	repo   domain.Repository
	cache  domain.Cache
	window time.Duration
}

// NewService creates a velocity service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		window: DefaultWindow,
	}
}

// Record notes a new application for the applicant and returns the updated
// count in the window. Cache failures fall through to the repository count.
func (s *Service) Record(ctx context.Context, tenantID, applicantID string) (int64, error) {
	if tenantID == "" || applicantID == "" {
		return 0, fmt.Errorf("tenantID and applicantID are required")
	}

	if s.cache != nil {
		count, err := s.cache.IncrementCounter(ctx, tenantID, counterKey(applicantID), s.window)
		if err == nil {
			return count, nil
		}
	}

	return s.Count(ctx, tenantID, applicantID)
}

// Count returns the number of applications the applicant filed within the
// window, from the repository.
func (s *Service) Count(ctx context.Context, tenantID, applicantID string) (int64, error) {
	if tenantID == "" || applicantID == "" {
		return 0, fmt.Errorf("tenantID and applicantID are required")
	}

	if s.repo == nil {
		return 0, fmt.Errorf("no data source available")
	}

	since := time.Now().Add(-s.window)
	count, err := s.repo.CountApplicationsByApplicant(ctx, tenantID, applicantID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return count, nil
}

func counterKey(applicantID string) string {
	return "velocity:applications:" + applicantID
}
