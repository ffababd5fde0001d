package domain

import (
	"io"
	"time"
)

// Status is the lifecycle state of a single upload item.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Terminal reports whether the item has settled.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Active reports whether the item currently occupies a processing slot.
func (s Status) Active() bool {
	return s == StatusUploading || s == StatusProcessing
}

// Progress checkpoints reached as an item moves through the pipeline.
const (
	ProgressQueued     = 0
	ProgressUploading  = 25
	ProgressProcessing = 50
	ProgressPersisted  = 75
	ProgressComplete   = 100
)

// RawFile is a submitted file before admission. Content is consumed once
// during staging.
type RawFile struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

// SourceFile identifies the file an upload item was created from.
type SourceFile struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// Failure describes why an item ended in StatusError.
type Failure struct {
	Message    string   `json:"message"`
	Category   Category `json:"category"`
	Retryable  bool     `json:"retryable"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// UploadItem is the externally visible record of one submitted file.
// Failure is non-nil exactly when Status is StatusError, and DocumentID is
// non-empty exactly when Status is StatusComplete.
type UploadItem struct {
	ID         string     `json:"id"`
	SourceFile SourceFile `json:"source_file"`
	Status     Status     `json:"status"`
	Progress   int        `json:"progress"`
	Failure    *Failure   `json:"failure,omitempty"`
	DocumentID string     `json:"document_id,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// StatusCounts tallies items per lifecycle state.
type StatusCounts struct {
	Queued     int `json:"queued"`
	Uploading  int `json:"uploading"`
	Processing int `json:"processing"`
	Complete   int `json:"complete"`
	Error      int `json:"error"`
}

// UploadState is a point-in-time snapshot of the whole batch.
type UploadState struct {
	Items           []UploadItem `json:"items"`
	Counts          StatusCounts `json:"counts"`
	IsUploading     bool         `json:"is_uploading"`
	OverallProgress int          `json:"overall_progress"`
}

// UploadEvent is the notification emitted on every item transition.
type UploadEvent struct {
	ItemID     string    `json:"item_id"`
	FileName   string    `json:"file_name"`
	Status     Status    `json:"status"`
	Progress   int       `json:"progress"`
	Category   Category  `json:"category,omitempty"`
	DocumentID string    `json:"document_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
