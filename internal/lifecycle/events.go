package lifecycle

import (
	"time"

	"github.com/zaqqye/exit_slip_backend/internal/models"
)

type EventType string

const (
	EventSubmitted  EventType = "submitted"
	EventUpdated    EventType = "updated"
	EventAuthorized EventType = "authorized"
	EventDenied     EventType = "denied"
	EventExited     EventType = "exited"
	EventCleared    EventType = "cleared"
)

// Event describes a committed transition. Short codes never appear in events.
type Event struct {
	Type      EventType         `json:"type"`
	StudentID string            `json:"studentId,omitempty"`
	Status    models.ExitStatus `json:"status,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	At        time.Time         `json:"at"`
}

// Notifier receives events after their transaction commits. Publish must not
// block.
type Notifier interface {
	Publish(Event)
}

func (e *Engine) publish(evt Event) {
	if e.notifier == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = e.now()
	}
	e.notifier.Publish(evt)
}
