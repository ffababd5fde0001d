package usecase

import (
	"testing"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
)

func item(status domain.Status, progress int) domain.UploadItem {
	it := domain.UploadItem{ID: "x", Status: status, Progress: progress}
	if status == domain.StatusError {
		it.Failure = &domain.Failure{Message: "boom", Category: domain.CategoryUnknown, Retryable: true}
	}
	if status == domain.StatusComplete {
		it.DocumentID = "doc"
	}
	return it
}

func TestBuildStateEmptyBatch(t *testing.T) {
	state := BuildState(nil)
	if state.OverallProgress != 0 {
		t.Fatalf("expected 0 overall progress for empty batch, got %d", state.OverallProgress)
	}
	if state.IsUploading {
		t.Fatal("empty batch cannot be uploading")
	}
}

func TestBuildStateCountsAndMean(t *testing.T) {
	state := BuildState([]domain.UploadItem{
		item(domain.StatusComplete, 100),
		item(domain.StatusProcessing, 50),
		item(domain.StatusQueued, 0),
	})

	if state.Counts.Complete != 1 || state.Counts.Processing != 1 || state.Counts.Queued != 1 {
		t.Fatalf("unexpected counts: %+v", state.Counts)
	}
	if !state.IsUploading {
		t.Fatal("expected IsUploading while an item processes")
	}
	if state.OverallProgress != 50 {
		t.Fatalf("expected overall progress 50, got %d", state.OverallProgress)
	}
}

func TestBuildStateRoundsToNearest(t *testing.T) {
	cases := []struct {
		progresses []int
		want       int
	}{
		{[]int{100, 75}, 88},
		{[]int{100, 25, 0}, 42},
		{[]int{25, 25, 25}, 25},
		{[]int{0, 0, 100}, 33},
	}

	for _, tc := range cases {
		items := make([]domain.UploadItem, 0, len(tc.progresses))
		for _, p := range tc.progresses {
			items = append(items, item(domain.StatusProcessing, p))
		}
		if got := BuildState(items).OverallProgress; got != tc.want {
			t.Errorf("progresses %v: expected %d, got %d", tc.progresses, tc.want, got)
		}
	}
}

func TestBuildStateIdleWhenAllTerminal(t *testing.T) {
	state := BuildState([]domain.UploadItem{
		item(domain.StatusComplete, 100),
		item(domain.StatusError, 25),
	})

	if state.IsUploading {
		t.Fatal("terminal batch must not report uploading")
	}
	if state.Counts.Error != 1 || state.Counts.Complete != 1 {
		t.Fatalf("unexpected counts: %+v", state.Counts)
	}
	if state.OverallProgress != 63 {
		t.Fatalf("expected overall progress 63, got %d", state.OverallProgress)
	}
}
