package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
	"github.com/kem-osh/write-wellspring/internal/infrastructure/resilience"
)

func TestClassifyNATSError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want resilience.ErrorClassification
	}{
		{"nil", nil, resilience.ErrorClassification{}},
		{"canceled", context.Canceled, resilience.ErrorClassification{Retryable: false, RecordFailure: false}},
		{"no servers", nats.ErrNoServers, resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{"timeout", nats.ErrTimeout, resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{"connection closed", nats.ErrConnectionClosed, resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{"other", errors.New("invalid subject"), resilience.ErrorClassification{Retryable: false, RecordFailure: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyNATSError(tc.err); got != tc.want {
				t.Fatalf("classifyNATSError() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestWrapTemporaryMarksRetryableErrors(t *testing.T) {
	err := wrapTemporaryIfNeeded(nats.ErrTimeout)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
	if !errors.Is(err, nats.ErrTimeout) {
		t.Fatalf("expected original error preserved, got %v", err)
	}
}

func TestWrapTemporaryLeavesPermanentErrorsAlone(t *testing.T) {
	permanent := errors.New("invalid subject")
	if got := wrapTemporaryIfNeeded(permanent); !errors.Is(got, permanent) || domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("expected permanent error unchanged, got %v", got)
	}
}

func TestWrapTemporaryDoesNotDoubleWrap(t *testing.T) {
	already := domain.WrapError(domain.ErrTemporary, "publish upload event", nats.ErrTimeout)
	if got := wrapTemporaryIfNeeded(already); got != already {
		t.Fatalf("expected error returned as-is, got %v", got)
	}
}

func TestEncodeEventShape(t *testing.T) {
	event := domain.UploadEvent{
		ItemID:     "item-1",
		FileName:   "notes.txt",
		Status:     domain.StatusComplete,
		Progress:   100,
		DocumentID: "doc-1",
		OccurredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	payload, err := encodeEvent(event)
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	for _, key := range []string{"item_id", "file_name", "status", "progress", "document_id", "occurred_at"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("expected key %q in payload %s", key, payload)
		}
	}
	if decoded["status"] != string(domain.StatusComplete) {
		t.Fatalf("expected status complete, got %v", decoded["status"])
	}
	if _, ok := decoded["category"]; ok {
		t.Fatalf("expected empty category omitted, payload %s", payload)
	}
}
