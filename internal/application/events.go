package application

import (
	"log/slog"

	"ramu/internal/domain"
)

// StateEvent describes the session after a transition.
type StateEvent struct {
	TurnID         string       `json:"turnId,omitempty"`
	State          domain.State `json:"state"`
	ControlEnabled bool         `json:"controlEnabled"`
	Label          string       `json:"label"`
	Profile        string       `json:"profile"`
}

// ErrorEvent is a failure surfaced to the user.
type ErrorEvent struct {
	TurnID  string           `json:"turnId,omitempty"`
	Kind    domain.ErrorKind `json:"kind"`
	Stage   string           `json:"stage"`
	Message string           `json:"message"`
}

// EventSink receives everything a presentation layer needs to render the
// session. Calls arrive in order and must not call back into the Orchestrator.
type EventSink interface {
	StateChanged(ev StateEvent)
	LogAppended(entry domain.LogEntry)
	Error(ev ErrorEvent)
}

type NoopSink struct{}

func (NoopSink) StateChanged(StateEvent)     {}
func (NoopSink) LogAppended(domain.LogEntry) {}
func (NoopSink) Error(ErrorEvent)            {}

// MultiSink fans events out to several sinks.
type MultiSink []EventSink

func (m MultiSink) StateChanged(ev StateEvent) {
	for _, s := range m {
		s.StateChanged(ev)
	}
}

func (m MultiSink) LogAppended(entry domain.LogEntry) {
	for _, s := range m {
		s.LogAppended(entry)
	}
}

func (m MultiSink) Error(ev ErrorEvent) {
	for _, s := range m {
		s.Error(ev)
	}
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) StateChanged(ev StateEvent) {
	l.Logger.Info("state changed",
		"state", ev.State,
		"control_enabled", ev.ControlEnabled,
		"label", ev.Label,
		"turn", ev.TurnID,
	)
}

func (l LogSink) LogAppended(entry domain.LogEntry) {
	l.Logger.Info("log entry",
		"kind", entry.Kind,
		"emphasis", entry.Emphasis,
		"text", entry.Text,
		"turn", entry.TurnID,
	)
}

func (l LogSink) Error(ev ErrorEvent) {
	l.Logger.Warn("surfaced error",
		"stage", ev.Stage,
		"kind", ev.Kind,
		"message", ev.Message,
		"turn", ev.TurnID,
	)
}
