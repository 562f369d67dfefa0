package pillpack

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/krippilippa/matchagig-fast/internal/domain"
)

type mockExtractor struct {
	pills []domain.Pill
	got   string
	err   error
}

func (m *mockExtractor) Extract(_ context.Context, jd string) ([]domain.Pill, error) {
	m.got = jd
	if m.err != nil {
		return nil, m.err
	}
	return m.pills, nil
}

const sampleJD = "We are hiring a backend engineer with strong Go and Redis experience to build search infrastructure."

func TestCompile(t *testing.T) {
	ext := &mockExtractor{pills: []domain.Pill{
		{Text: "Go", Weight: 1.5},
		{Text: "Redis", Weight: 1.0},
	}}
	svc := New(ext)

	pills, err := svc.Compile(context.Background(), sampleJD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pills) != 2 {
		t.Fatalf("expected 2 pills, got %d", len(pills))
	}
	if ext.got != sampleJD {
		t.Errorf("extractor received %q", ext.got)
	}
}

func TestCompile_TrimsInput(t *testing.T) {
	ext := &mockExtractor{pills: []domain.Pill{{Text: "Go", Weight: 1.0}}}
	svc := New(ext)

	if _, err := svc.Compile(context.Background(), "   "+sampleJD+"\n\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.got != sampleJD {
		t.Errorf("input not trimmed: %q", ext.got)
	}
}

func TestCompile_LengthBounds(t *testing.T) {
	svc := New(&mockExtractor{})

	if _, err := svc.Compile(context.Background(), "too short"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("short jd: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Compile(context.Background(), strings.Repeat("x", 10_001)); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("long jd: expected ErrValidation, got %v", err)
	}
}

func TestCompile_ExtractorFailure(t *testing.T) {
	svc := New(&mockExtractor{err: domain.ErrExtractionProviderError})

	if _, err := svc.Compile(context.Background(), sampleJD); !errors.Is(err, domain.ErrExtractionProviderError) {
		t.Errorf("expected ErrExtractionProviderError, got %v", err)
	}
}

func TestCompile_RejectsInvalidExtraction(t *testing.T) {
	svc := New(&mockExtractor{pills: []domain.Pill{{Text: "go", Weight: 99}}})

	if _, err := svc.Compile(context.Background(), sampleJD); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for out-of-range weight, got %v", err)
	}
}
