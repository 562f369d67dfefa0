// Package pillpack compiles free-text job descriptions into weighted pills.
package pillpack

import (
	"context"
	"fmt"
	"strings"

	"github.com/krippilippa/matchagig-fast/internal/domain"
)

const (
	minJobDescriptionLen = 50
	maxJobDescriptionLen = 10_000
)

// Extractor turns a job description into weighted pills.
type Extractor interface {
	Extract(ctx context.Context, jobDescription string) ([]domain.Pill, error)
}

// Service validates job descriptions and delegates extraction.
type Service struct {
	extractor Extractor
}

// New creates a pillpack service.
func New(extractor Extractor) *Service {
	return &Service{extractor: extractor}
}

// Compile extracts at most domain.MaxPills weighted pills from the job
// description. Length bounds are checked before the extraction call.
func (s *Service) Compile(ctx context.Context, jobDescription string) ([]domain.Pill, error) {
	jd := strings.TrimSpace(jobDescription)
	if len(jd) < minJobDescriptionLen {
		return nil, fmt.Errorf("job description too short (%d chars, need %d): %w",
			len(jd), minJobDescriptionLen, domain.ErrValidation)
	}
	if len(jd) > maxJobDescriptionLen {
		return nil, fmt.Errorf("job description too long (%d chars, max %d): %w",
			len(jd), maxJobDescriptionLen, domain.ErrValidation)
	}

	pills, err := s.extractor.Extract(ctx, jd)
	if err != nil {
		return nil, fmt.Errorf("compile pills: %w", err)
	}
	if err := domain.ValidatePills(pills); err != nil {
		return nil, fmt.Errorf("extracted pills invalid: %w", err)
	}
	return pills, nil
}
