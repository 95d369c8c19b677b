// Package chunker splits cleaned document text into overlapping fixed-size windows.
package chunker

import "strings"

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits text into fixed-size character windows.
// Sizes are measured in runes, not bytes or tokens.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// ChunkSize returns the window size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the window overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Clean collapses every run of whitespace into a single space and trims the ends.
func Clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Split cleans text and returns its windows in order.
// Each window after the first starts chunkSize-overlap characters after the
// previous one. The last window ends exactly at the end of the text.
// Windows that are blank after trimming are dropped.
func (p *Processor) Split(text string) []string {
	runes := []rune(Clean(text))
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := p.chunkSize - p.overlap
	chunks := make([]string, 0, n/step+1)

	for start := 0; start < n; start += step {
		end := start + p.chunkSize
		if end > n {
			end = n
		}

		if window := string(runes[start:end]); strings.TrimSpace(window) != "" {
			chunks = append(chunks, window)
		}

		if end == n {
			break
		}
	}

	return chunks
}
