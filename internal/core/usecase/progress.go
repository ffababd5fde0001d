package usecase

import (
	"math"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
)

// BuildState derives the aggregate snapshot from an item list. Overall
// progress is the unweighted mean of item progress, rounded to the nearest
// integer, and 0 for an empty batch.
func BuildState(items []domain.UploadItem) domain.UploadState {
	state := domain.UploadState{Items: items}
	if len(items) == 0 {
		return state
	}

	total := 0
	for _, item := range items {
		total += item.Progress
		switch item.Status {
		case domain.StatusQueued:
			state.Counts.Queued++
		case domain.StatusUploading:
			state.Counts.Uploading++
		case domain.StatusProcessing:
			state.Counts.Processing++
		case domain.StatusComplete:
			state.Counts.Complete++
		case domain.StatusError:
			state.Counts.Error++
		}
	}

	state.IsUploading = state.Counts.Uploading+state.Counts.Processing > 0
	state.OverallProgress = int(math.Round(float64(total) / float64(len(items))))
	return state
}
