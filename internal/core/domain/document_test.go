package domain

import "testing"

func TestCountWords(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"one", 1},
		{"quick brown fox", 3},
		{"line one\nline two\n", 4},
		{"tabs\tand  double  spaces", 4},
	}

	for _, tc := range cases {
		if got := CountWords(tc.text); got != tc.want {
			t.Errorf("CountWords(%q): expected %d, got %d", tc.text, tc.want, got)
		}
	}
}

func TestTitleFromFilename(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"notes.txt", "notes"},
		{"reports/q3 summary.pdf", "q3 summary"},
		{"C:\\uploads\\draft.md", "draft"},
		{"no-extension", "no-extension"},
		{"", "Untitled"},
		{".hidden", "Untitled"},
	}

	for _, tc := range cases {
		if got := TitleFromFilename(tc.filename); got != tc.want {
			t.Errorf("TitleFromFilename(%q): expected %q, got %q", tc.filename, tc.want, got)
		}
	}
}

func TestStatusHelpers(t *testing.T) {
	if !StatusComplete.Terminal() || !StatusError.Terminal() {
		t.Fatal("expected complete and error to be terminal")
	}
	if StatusQueued.Terminal() || StatusUploading.Terminal() || StatusProcessing.Terminal() {
		t.Fatal("expected queued, uploading and processing to be non-terminal")
	}
	if !StatusUploading.Active() || !StatusProcessing.Active() {
		t.Fatal("expected uploading and processing to be active")
	}
	if StatusQueued.Active() || StatusComplete.Active() || StatusError.Active() {
		t.Fatal("expected queued and terminal statuses to be inactive")
	}
}
