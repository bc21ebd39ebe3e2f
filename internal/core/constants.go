// Package core provides the domain model of the question-answering workflow:
// state, answers, steps, collaborator ports and the pure scoring functions.
// All packages should import from here to ensure consistency across the codebase.
package core

// Model backend identifiers
const (
	BackendOpenAI    = "openai"
	BackendGemini    = "gemini"
	BackendCLI       = "cli"
	BackendHeuristic = "heuristic"
)

// Backends is the ordered list of all supported model backends.
var Backends = []string{
	BackendOpenAI,
	BackendGemini,
	BackendCLI,
	BackendHeuristic,
}

// ValidBackends is a map for O(1) backend validation.
var ValidBackends = map[string]bool{
	BackendOpenAI:    true,
	BackendGemini:    true,
	BackendCLI:       true,
	BackendHeuristic: true,
}

// IsValidBackend checks if the given backend name is valid.
func IsValidBackend(name string) bool {
	return ValidBackends[name]
}

// Retrieval backend identifiers
const (
	RetrievalTFIDF    = "tfidf"
	RetrievalPGVector = "pgvector"
)

// ValidRetrievalBackends is a map for O(1) retrieval backend validation.
var ValidRetrievalBackends = map[string]bool{
	RetrievalTFIDF:    true,
	RetrievalPGVector: true,
}

// IsValidRetrievalBackend checks if the given retrieval backend is valid.
func IsValidRetrievalBackend(name string) bool {
	return ValidRetrievalBackends[name]
}

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

// DefaultDocPattern selects the documents indexed by the TF-IDF retriever.
const DefaultDocPattern = "**/*.md"
