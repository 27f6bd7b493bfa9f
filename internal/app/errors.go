package app

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDocumentNotFound = errors.New("document not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrChunkNotFound    = errors.New("chunk not found")

	// ErrLLMConfig is a fatal configuration error: generation has no fallback
	// the way embeddings do.
	ErrLLMConfig = errors.New("llm api key is not configured")

	// ErrRetrieval and ErrGeneration abort a turn; the user's message is
	// already persisted by then, so the conversation survives a retry.
	ErrRetrieval  = errors.New("context retrieval failed")
	ErrGeneration = errors.New("response generation failed")
)
