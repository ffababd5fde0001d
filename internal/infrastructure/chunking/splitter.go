package chunking

import "strings"

const (
	// DefaultWindow fits comfortably inside the embedding model's context.
	DefaultWindow = 8000
	// DefaultOverlap keeps sentence fragments from being cut in half at a
	// window boundary.
	DefaultOverlap = 200
)

// Splitter cuts document text into rune windows for embedding. Documents
// shorter than one window pass through as a single chunk.
type Splitter struct {
	Window  int
	Overlap int
}

func NewSplitter(window, overlap int) *Splitter {
	if window <= 0 {
		window = DefaultWindow
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= window {
		overlap = window / 4
	}
	return &Splitter{
		Window:  window,
		Overlap: overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.Window - s.Overlap
	if step <= 0 {
		step = s.Window
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.Window
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
