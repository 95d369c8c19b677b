package driven

// Prompt names understood by PromptStore.
const (
	// PromptDocumentAnalysis holds the analysis rules and output schema sent
	// to the analyzer. It is formatted with the configured user prompt (%s).
	PromptDocumentAnalysis = "document_analysis"
)

// PromptStore loads user-editable prompt templates.
type PromptStore interface {
	// Load returns the template for name.
	Load(name string) (string, error)
}
