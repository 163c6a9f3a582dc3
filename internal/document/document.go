// Package document defines documents, chunks, and the overlapping-window
// chunker that prepares text for retrieval.
//
// A Document owns its chunks exclusively. Documents are immutable once
// created and safe for concurrent reads.
package document

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Sentinel errors for document operations.
var (
	// ErrInvalidConfig indicates invalid chunker configuration.
	ErrInvalidConfig = errors.New("invalid chunker configuration")
)

// Chunk is a bounded, overlapping substring of a document. Start and End are
// byte offsets into the normalized document text. Index is the chunk's
// position in document order and is significant: retrieval uses it as a
// deterministic tie-break.
type Chunk struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Document is immutable normalized text plus its ordered chunk sequence.
// Adjacent chunks overlap by the configured amount; together they cover
// every byte of the text.
type Document struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Chunks []Chunk `json:"chunks"`
}

// Empty reports whether the document has no chunks.
func (d *Document) Empty() bool {
	return len(d.Chunks) == 0
}

// DefaultWindowSize is the default chunk window in bytes.
const DefaultWindowSize = 1000

// DefaultOverlap is the default overlap between adjacent chunks in bytes.
const DefaultOverlap = 200

// Config holds chunker configuration.
type Config struct {
	// WindowSize is the chunk window in bytes.
	WindowSize int `koanf:"window_size"`

	// Overlap is the number of bytes shared between adjacent chunks.
	Overlap int `koanf:"overlap"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.Overlap == 0 {
		c.Overlap = DefaultOverlap
	}
}

// Validate validates the configuration. A misconfigured chunker is a
// programmer error, the one place this package returns errors.
func (c *Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window_size must be positive, got %d", ErrInvalidConfig, c.WindowSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must be non-negative, got %d", ErrInvalidConfig, c.Overlap)
	}
	if c.Overlap >= c.WindowSize {
		return fmt.Errorf("%w: overlap %d must be smaller than window_size %d", ErrInvalidConfig, c.Overlap, c.WindowSize)
	}
	return nil
}

// Chunker splits normalized text into overlapping fixed-size windows.
// It deliberately does not avoid splitting mid-word; overlap between
// adjacent windows compensates for severed phrases.
type Chunker struct {
	config Config
}

// NewChunker creates a Chunker with the given configuration.
func NewChunker(config Config) (*Chunker, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &Chunker{config: config}, nil
}

// Chunk splits text into overlapping windows. Empty input yields an empty
// sequence, not an error. Text shorter than the window yields exactly one
// chunk equal to the whole text.
//
// Window boundaries back off to rune starts so a multi-byte rune is never
// split across chunks; the overlap keeps coverage intact.
func (c *Chunker) Chunk(text string) []Chunk {
	if text == "" {
		return nil
	}

	window := c.config.WindowSize
	step := window - c.config.Overlap

	chunks := make([]Chunk, 0, len(text)/step+1)
	for start := 0; start < len(text); {
		end := start + window
		if end >= len(text) {
			end = len(text)
		} else if e := runeFloor(text, end); e > start {
			end = e
		} else {
			// The window is narrower than the rune at start; emit the
			// whole rune rather than an invalid fragment.
			_, size := utf8.DecodeRuneInString(text[start:])
			end = start + size
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  text[start:end],
		})
		if end == len(text) {
			break
		}
		next := runeFloor(text, start+step)
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// runeFloor backs a byte offset off to the nearest rune boundary at or
// before it.
func runeFloor(text string, i int) int {
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// Process normalizes raw text and wraps it in a Document with its chunk
// sequence. An empty or whitespace-only input produces a zero-chunk
// document; downstream stages treat that as "no content", not a failure.
func (c *Chunker) Process(text string) *Document {
	normalized := Normalize(text)
	return &Document{
		ID:     uuid.New().String(),
		Text:   normalized,
		Chunks: c.Chunk(normalized),
	}
}
