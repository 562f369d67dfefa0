package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/krippilippa/matchagig-fast/internal/domain"
	"github.com/krippilippa/matchagig-fast/internal/domain/canon"
)

// --- Mocks ---

type mockResumes struct {
	created []domain.Resume
	bySHA   map[string]string
	err     error
}

func (m *mockResumes) Create(_ context.Context, res domain.Resume) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, res)
	return nil
}

func (m *mockResumes) FindBySHA(_ context.Context, sha string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	id, ok := m.bySHA[sha]
	return id, ok, nil
}

type mockChunks struct {
	batches [][]domain.Chunk
	err     error
}

func (m *mockChunks) InsertBatch(_ context.Context, batch []domain.Chunk) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, batch)
	return nil
}

type mockBlobs struct {
	put [][]byte
	err error
}

func (m *mockBlobs) Put(data []byte, ext string) (string, string, error) {
	if m.err != nil {
		return "", "", m.err
	}
	m.put = append(m.put, data)
	return "deadbeef", "/files/deadbeef/deadbeef." + ext, nil
}

type mockEmbedder struct {
	calls [][]string
	err   error
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	m.calls = append(m.calls, texts)
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i := range texts {
		out.Embeddings[i] = []float32{1}
	}
	return out, nil
}

func newTestService(resumes *mockResumes, chunks *mockChunks, blobs *mockBlobs, emb *mockEmbedder) *Service {
	return New(resumes, chunks, blobs, emb, Options{
		MinChunkLen: 20,
		MaxChunkLen: 60,
		MaxChars:    10_000,
		BatchSize:   2,
		Flatten:     canon.FlattenSoft,
	})
}

const sampleText = "Led the payments team at Acme for four years. " +
	"Shipped a fraud detection pipeline on Kafka. " +
	"Mentored six engineers across two offices. " +
	"Ran the migration from bare metal to Kubernetes."

// --- Tests ---

func TestIngest_StoresResumeAndChunks(t *testing.T) {
	resumes := &mockResumes{bySHA: map[string]string{}}
	chunks := &mockChunks{}
	blobs := &mockBlobs{}
	emb := &mockEmbedder{}
	svc := newTestService(resumes, chunks, blobs, emb)

	res, err := svc.Ingest(context.Background(), Input{Name: "Ada", Text: sampleText})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.ResumeID == "" || res.SHA256 == "" {
		t.Errorf("incomplete result: %+v", res)
	}
	if res.AlreadyIngested {
		t.Error("fresh text reported as already ingested")
	}
	if len(resumes.created) != 1 {
		t.Fatalf("expected 1 resume record, got %d", len(resumes.created))
	}
	if resumes.created[0].Name != "Ada" {
		t.Errorf("name = %q", resumes.created[0].Name)
	}
	if res.Chunks == 0 {
		t.Fatal("no chunks stored")
	}

	total := 0
	for _, b := range chunks.batches {
		total += len(b)
		for _, c := range b {
			if c.ResumeID != res.ResumeID {
				t.Errorf("chunk resume id = %q, want %q", c.ResumeID, res.ResumeID)
			}
			if c.ID == "" {
				t.Error("chunk without id")
			}
			if len(c.Embedding) == 0 {
				t.Error("chunk without embedding")
			}
			if c.Coordinates.CharEnd-c.Coordinates.CharStart != c.Coordinates.TextLength {
				t.Errorf("coordinates inconsistent: %+v", c.Coordinates)
			}
		}
	}
	if total != res.Chunks {
		t.Errorf("stored %d chunks, result says %d", total, res.Chunks)
	}
}

func TestIngest_StorageMirrorsEmbeddingBatches(t *testing.T) {
	resumes := &mockResumes{bySHA: map[string]string{}}
	chunks := &mockChunks{}
	emb := &mockEmbedder{}
	svc := newTestService(resumes, chunks, &mockBlobs{}, emb)

	if _, err := svc.Ingest(context.Background(), Input{Name: "Ada", Text: sampleText}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(emb.calls) != len(chunks.batches) {
		t.Fatalf("embedding calls %d != insert batches %d", len(emb.calls), len(chunks.batches))
	}
	for i := range emb.calls {
		if len(emb.calls[i]) != len(chunks.batches[i]) {
			t.Errorf("batch %d: embedded %d texts, stored %d chunks",
				i, len(emb.calls[i]), len(chunks.batches[i]))
		}
		if len(emb.calls[i]) > 2 {
			t.Errorf("batch %d exceeds configured size: %d", i, len(emb.calls[i]))
		}
	}
}

func TestIngest_DedupeBySHA(t *testing.T) {
	resumes := &mockResumes{bySHA: map[string]string{}}
	chunks := &mockChunks{}
	blobs := &mockBlobs{}
	emb := &mockEmbedder{}
	svc := newTestService(resumes, chunks, blobs, emb)

	first, err := svc.Ingest(context.Background(), Input{Name: "Ada", Text: sampleText})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resumes.bySHA[first.SHA256] = first.ResumeID

	second, err := svc.Ingest(context.Background(), Input{Name: "Ada again", Text: sampleText})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.AlreadyIngested {
		t.Error("duplicate not detected")
	}
	if second.ResumeID != first.ResumeID {
		t.Errorf("duplicate resume id = %q, want %q", second.ResumeID, first.ResumeID)
	}
	if len(resumes.created) != 1 {
		t.Errorf("duplicate created a second resume record")
	}
	if len(emb.calls) != len(chunks.batches) {
		t.Errorf("duplicate triggered embedding work")
	}
}

func TestIngest_Validation(t *testing.T) {
	svc := newTestService(&mockResumes{bySHA: map[string]string{}}, &mockChunks{}, &mockBlobs{}, &mockEmbedder{})

	if _, err := svc.Ingest(context.Background(), Input{Text: sampleText}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing name: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Ingest(context.Background(), Input{Name: "Ada", Text: "   "}); !errors.Is(err, domain.ErrNoExtractableText) {
		t.Errorf("blank text: expected ErrNoExtractableText, got %v", err)
	}
}

func TestIngest_FailClosedOnEmbedderError(t *testing.T) {
	resumes := &mockResumes{bySHA: map[string]string{}}
	chunks := &mockChunks{}
	emb := &mockEmbedder{err: errors.New("provider down")}
	svc := newTestService(resumes, chunks, &mockBlobs{}, emb)

	if _, err := svc.Ingest(context.Background(), Input{Name: "Ada", Text: sampleText}); err == nil {
		t.Fatal("expected error")
	}
	if len(resumes.created) != 0 {
		t.Error("resume record created despite embedding failure")
	}
}

func TestIngest_CapsAtMaxChars(t *testing.T) {
	resumes := &mockResumes{bySHA: map[string]string{}}
	chunks := &mockChunks{}
	svc := New(resumes, chunks, &mockBlobs{}, &mockEmbedder{}, Options{
		MinChunkLen: 20,
		MaxChunkLen: 60,
		MaxChars:    200,
		BatchSize:   48,
		Flatten:     canon.FlattenNone,
	})

	long := strings.Repeat("Did some volunteer work. ", 100)
	if _, err := svc.Ingest(context.Background(), Input{Name: "Ada", Text: long}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, b := range chunks.batches {
		for _, c := range b {
			if c.Coordinates.CharEnd > 200 {
				t.Errorf("chunk past the cap: %+v", c.Coordinates)
			}
		}
	}
}

func TestIngest_MaxCharsCapKeepsRuneBoundaries(t *testing.T) {
	resumes := &mockResumes{bySHA: map[string]string{}}
	chunks := &mockChunks{}
	svc := New(resumes, chunks, &mockBlobs{}, &mockEmbedder{}, Options{
		MinChunkLen: 20,
		MaxChunkLen: 60,
		MaxChars:    201, // an odd cap would split a 2-byte rune without boundary backoff
		BatchSize:   48,
		Flatten:     canon.FlattenNone,
	})

	long := strings.Repeat("é", 300)
	if _, err := svc.Ingest(context.Background(), Input{Name: "Ada", Text: long}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, b := range chunks.batches {
		for _, c := range b {
			if !utf8.ValidString(c.Text) {
				t.Errorf("chunk text is not valid UTF-8: %q", c.Text)
			}
			if c.Coordinates.CharEnd > 201 {
				t.Errorf("chunk past the cap: %+v", c.Coordinates)
			}
		}
	}
}
