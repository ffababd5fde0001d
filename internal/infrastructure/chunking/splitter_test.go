package chunking

import (
	"strings"
	"testing"
)

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	s := NewSplitter(100, 10)
	chunks := s.Split("a short note")
	if len(chunks) != 1 || chunks[0] != "a short note" {
		t.Fatalf("Split() = %v, want single chunk", chunks)
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(100, 10)
	if chunks := s.Split(""); chunks != nil {
		t.Fatalf("Split(\"\") = %v, want nil", chunks)
	}
}

func TestSplitWindowsOverlap(t *testing.T) {
	s := NewSplitter(10, 4)
	text := strings.Repeat("abcdef", 10)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len([]rune(chunk)) > 10 {
			t.Fatalf("chunk %d longer than window: %q", i, chunk)
		}
	}
	// Each window starts step runes after the previous, so consecutive
	// chunks share the overlap region.
	first := []rune(chunks[0])
	second := []rune(chunks[1])
	if string(first[len(first)-4:]) != string(second[:4]) {
		t.Fatalf("chunks do not overlap: %q vs %q", chunks[0], chunks[1])
	}
}

func TestNewSplitterClampsBadValues(t *testing.T) {
	s := NewSplitter(0, -1)
	if s.Window != DefaultWindow || s.Overlap != DefaultOverlap {
		t.Fatalf("expected defaults, got window=%d overlap=%d", s.Window, s.Overlap)
	}

	s = NewSplitter(100, 100)
	if s.Overlap >= s.Window {
		t.Fatalf("overlap %d not clamped below window %d", s.Overlap, s.Window)
	}
}
