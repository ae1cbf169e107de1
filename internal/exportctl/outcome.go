package exportctl

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoCaptureBackend is the Outcome error for image exports without a capturer.
var ErrNoCaptureBackend = errors.New("no capture backend configured")

// Kind distinguishes the two export actions.
type Kind string

const (
	KindImage Kind = "image"
	KindData  Kind = "data"
)

// Outcome is the completion signal of one export.
type Outcome struct {
	Kind       Kind
	Filename   string
	Saved      bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Status summarises the outcome as "saved", "skipped" or "failed".
func (o Outcome) Status() string {
	switch {
	case o.Err != nil:
		return "failed"
	case o.Saved:
		return "saved"
	default:
		return "skipped"
	}
}

// Message renders a one-line notification text.
func (o Outcome) Message() string {
	switch o.Status() {
	case "failed":
		return fmt.Sprintf("%s export %s failed: %v", o.Kind, o.Filename, o.Err)
	case "skipped":
		return fmt.Sprintf("%s export %s produced no file", o.Kind, o.Filename)
	default:
		return fmt.Sprintf("%s export %s saved", o.Kind, o.Filename)
	}
}

// Entry is the journal form of an Outcome.
type Entry struct {
	Kind       Kind      `json:"kind"`
	Filename   string    `json:"filename"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Entry converts the outcome for the journal.
func (o Outcome) Entry() Entry {
	e := Entry{
		Kind:       o.Kind,
		Filename:   o.Filename,
		Status:     o.Status(),
		StartedAt:  o.StartedAt.UTC(),
		FinishedAt: o.FinishedAt.UTC(),
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}
