package domain

import "errors"

// KeyPrefix namespaces every Redis key this service writes.
const KeyPrefix = "mgig:"

var (
	// ErrValidation signals malformed client input, rejected before any collaborator call.
	ErrValidation = errors.New("validation failed")
	// ErrResumeNotFound signals a missing resume record.
	ErrResumeNotFound = errors.New("resume not found")
	// ErrNoExtractableText signals a source document that produced zero chunks.
	ErrNoExtractableText = errors.New("no extractable text")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSearchProviderError signals a nearest-neighbor store failure.
	ErrSearchProviderError = errors.New("search provider error")
	// ErrExtractionProviderError signals a pill extraction (LLM) failure.
	ErrExtractionProviderError = errors.New("extraction provider error")
)
