package domain

// Resume is a candidate document. The matching engine only needs its identity
// and display metadata; the text lives in chunks.
type Resume struct {
	ID     string
	Name   string
	PDFURL string
	SHA256 string
}

// Coordinates locate a chunk inside its resume's canonical text, in bytes.
type Coordinates struct {
	CharStart  int `json:"char_start"`
	CharEnd    int `json:"char_end"`
	TextLength int `json:"text_length"`
}

// Chunk is a bounded slice of a resume's canonical text. Created once at
// ingestion, immutable thereafter.
type Chunk struct {
	ID          string
	ResumeID    string
	Text        string
	PageNumber  int
	Coordinates Coordinates
	Embedding   []float32
}
