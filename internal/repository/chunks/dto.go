package chunks

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/krippilippa/matchagig-fast/internal/domain"
)

// buildHashFields converts a domain Chunk into a flat map[string]string for HSET.
func buildHashFields(c *domain.Chunk) map[string]string {
	return map[string]string{
		"resume_id":   c.ResumeID,
		"text":        c.Text,
		"page_number": strconv.Itoa(c.PageNumber),
		"char_start":  strconv.Itoa(c.Coordinates.CharStart),
		"char_end":    strconv.Itoa(c.Coordinates.CharEnd),
		"text_length": strconv.Itoa(c.Coordinates.TextLength),
		"vector":      vectorToBytes(c.Embedding),
	}
}

// parseHashFields converts a flat hash map back into chunk metadata.
// The embedding stays in the store; evidence lookups never need it.
func parseHashFields(id string, m map[string]string) domain.Chunk {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	return domain.Chunk{
		ID:         id,
		ResumeID:   m["resume_id"],
		Text:       m["text"],
		PageNumber: atoi(m["page_number"]),
		Coordinates: domain.Coordinates{
			CharStart:  atoi(m["char_start"]),
			CharEnd:    atoi(m["char_end"]),
			TextLength: atoi(m["text_length"]),
		},
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
