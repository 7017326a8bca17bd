package domain

import "time"

// State models the turn lifecycle of a session.
type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateResponding   State = "responding"
	StateSpeaking     State = "speaking"
)

// Emphasis tells the presentation layer how to render a log entry.
type Emphasis string

const (
	EmphasisStrong Emphasis = "emphasized"
	EmphasisNormal Emphasis = "normal"
	EmphasisMuted  Emphasis = "deemphasized"
)

type EntryKind string

const (
	EntryTranscript      EntryKind = "transcript"
	EntryResponse        EntryKind = "response"
	EntryNoTranscript    EntryKind = "no_transcript"
	EntryNoResponse      EntryKind = "no_response"
	EntrySynthesisFailed EntryKind = "synthesis_failed"
)

// Placeholder texts for entries that carry no remote result.
const (
	NoTranscriptText    = "No transcription result."
	NoResponseText      = "No response from the assistant."
	SynthesisFailedText = "Could not speak the response."
)

// LogEntry is one line of the append-only result log.
type LogEntry struct {
	Seq      int       `json:"seq"`
	TurnID   string    `json:"turnId"`
	Kind     EntryKind `json:"kind"`
	Emphasis Emphasis  `json:"emphasis"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

// TranscriptionResult holds either recognized text or the kind of failure.
type TranscriptionResult struct {
	Text string
	Err  error
}

func (r TranscriptionResult) OK() bool {
	return r.Err == nil && r.Text != ""
}

// ChatResult holds either the completion text or the kind of failure.
type ChatResult struct {
	Text string
	Err  error
}

func (r ChatResult) OK() bool {
	return r.Err == nil && r.Text != ""
}
