package driven

// TextSplitter cleans text and splits it into overlapping windows.
type TextSplitter interface {
	// Split returns the windows in document order. Empty text yields none.
	Split(text string) []string
}
