package ingestion_engine

import (
	"fmt"

	"github.com/somshekargr/studybuddy/internal/models"
)

// Event moves a document through its lifecycle. All status writes go through
// Transition so illegal moves are caught before they reach the store.
type Event string

const (
	// EventStart begins ingestion: pending -> processing.
	EventStart Event = "start"
	// EventComplete finishes ingestion with chunks: processing -> ready.
	EventComplete Event = "complete"
	// EventNeedsOCR finishes with no extractable text: processing -> needs_ocr.
	EventNeedsOCR Event = "needs_ocr"
	// EventFail aborts: processing -> failed. Also used by the startup sweep.
	EventFail Event = "fail"
	// EventReset re-queues a finished document for reprocessing: any terminal
	// state (or pending) -> pending. A document mid-processing cannot be reset.
	EventReset Event = "reset"
)

// Transition returns the next status for (current, event), or an error when
// the move is illegal. It is pure; persistence is the caller's concern.
func Transition(current string, event Event) (string, error) {
	switch event {
	case EventStart:
		if current == models.StatusPending {
			return models.StatusProcessing, nil
		}
	case EventComplete:
		if current == models.StatusProcessing {
			return models.StatusReady, nil
		}
	case EventNeedsOCR:
		if current == models.StatusProcessing {
			return models.StatusNeedsOCR, nil
		}
	case EventFail:
		if current == models.StatusProcessing {
			return models.StatusFailed, nil
		}
	case EventReset:
		switch current {
		case models.StatusPending, models.StatusReady, models.StatusFailed, models.StatusNeedsOCR:
			return models.StatusPending, nil
		}
	default:
		return "", fmt.Errorf("unknown event %q", event)
	}
	return "", fmt.Errorf("illegal transition: %s on %q", event, current)
}
