// Package ingest turns extracted resume text into stored, embedded chunks.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krippilippa/matchagig-fast/internal/domain"
	"github.com/krippilippa/matchagig-fast/internal/domain/canon"
	"github.com/krippilippa/matchagig-fast/internal/domain/chunktext"
	"github.com/krippilippa/matchagig-fast/internal/logger"
)

// Input is one resume to ingest. Text is the extracted plain text; Source is
// the optional original file (typically the PDF) kept for later viewing.
type Input struct {
	Name      string
	Text      string
	Source    []byte
	SourceExt string
}

// Result reports what ingestion stored.
type Result struct {
	ResumeID        string `json:"resume_id"`
	PDFURL          string `json:"pdf_url,omitempty"`
	SHA256          string `json:"sha256"`
	Chunks          int    `json:"chunks"`
	AlreadyIngested bool   `json:"already_ingested"`
}

// Service normalizes, chunks, embeds and stores resumes.
type Service struct {
	resumes  ResumeWriter
	chunks   ChunkWriter
	blobs    BlobStore
	embedder Embedder

	minChunkLen int
	maxChunkLen int
	maxChars    int
	batchSize   int
	flatten     canon.Flatten
}

// Options tunes normalization and chunking.
type Options struct {
	MinChunkLen int
	MaxChunkLen int
	MaxChars    int
	BatchSize   int
	Flatten     canon.Flatten
}

// New creates an ingestion service.
func New(resumes ResumeWriter, chunks ChunkWriter, blobs BlobStore, embedder Embedder, opts Options) *Service {
	return &Service{
		resumes:     resumes,
		chunks:      chunks,
		blobs:       blobs,
		embedder:    embedder,
		minChunkLen: opts.MinChunkLen,
		maxChunkLen: opts.MaxChunkLen,
		maxChars:    opts.MaxChars,
		batchSize:   opts.BatchSize,
		flatten:     opts.Flatten,
	}
}

// Ingest stores one resume. Identical source bytes (same sha256) are detected
// before any embedding work and reported as already ingested.
func (s *Service) Ingest(ctx context.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Result{}, fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(in.Text) == "" {
		return Result{}, fmt.Errorf("text is required: %w", domain.ErrNoExtractableText)
	}

	data := in.Source
	ext := in.SourceExt
	if len(data) == 0 {
		data = []byte(in.Text)
		ext = "txt"
	}
	if ext == "" {
		ext = "pdf"
	}

	sum := sha256.Sum256(data)
	sha := hex.EncodeToString(sum[:])

	if existingID, found, err := s.resumes.FindBySHA(ctx, sha); err != nil {
		return Result{}, fmt.Errorf("dedupe lookup: %w", err)
	} else if found {
		return Result{ResumeID: existingID, SHA256: sha, AlreadyIngested: true}, nil
	}

	_, url, err := s.blobs.Put(data, ext)
	if err != nil {
		return Result{}, fmt.Errorf("store source: %w", err)
	}

	text := canon.Normalize(in.Text, s.flatten)
	if len(text) > s.maxChars {
		text = text[:chunktext.CutAt(text, s.maxChars)]
	}

	segments := chunktext.Window(text, s.minChunkLen, s.maxChunkLen)
	if len(segments) == 0 {
		return Result{}, fmt.Errorf("no chunks produced from %d chars: %w", len(text), domain.ErrNoExtractableText)
	}

	resumeID := uuid.NewString()
	batch := make([]domain.Chunk, len(segments))
	for i, seg := range segments {
		batch[i] = domain.Chunk{
			ID:         uuid.NewString(),
			ResumeID:   resumeID,
			Text:       seg.Text,
			PageNumber: chunktext.PageEstimate(seg.CharStart),
			Coordinates: domain.Coordinates{
				CharStart:  seg.CharStart,
				CharEnd:    seg.CharEnd,
				TextLength: len(seg.Text),
			},
		}
	}

	if err := s.embedAndStore(ctx, batch); err != nil {
		return Result{}, err
	}

	res := domain.Resume{ID: resumeID, Name: in.Name, PDFURL: url, SHA256: sha}
	if err := s.resumes.Create(ctx, res); err != nil {
		return Result{}, fmt.Errorf("create resume: %w", err)
	}

	logger.FromContext(ctx).Info("resume ingested",
		zap.String("resume_id", resumeID),
		zap.Int("chunks", len(batch)),
		zap.Int("chars", len(text)))

	return Result{ResumeID: resumeID, PDFURL: url, SHA256: sha, Chunks: len(batch)}, nil
}

// embedAndStore embeds chunk texts and writes each group as soon as its
// vectors arrive, so storage writes mirror embedding batches.
func (s *Service) embedAndStore(ctx context.Context, batch []domain.Chunk) error {
	size := s.batchSize
	if size <= 0 {
		size = len(batch)
	}

	for start := 0; start < len(batch); start += size {
		end := min(start+size, len(batch))
		group := batch[start:end]

		texts := make([]string, len(group))
		for i, c := range group {
			texts[i] = c.Text
		}

		res, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks [%d:%d]: %w", start, end, err)
		}
		for i := range group {
			group[i].Embedding = res.Embeddings[i]
		}

		if err := s.chunks.InsertBatch(ctx, group); err != nil {
			return fmt.Errorf("store chunks [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}
