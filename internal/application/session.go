package application

import (
	"ramu/internal/domain"
)

// Labels shown on the record control.
const (
	LabelRecording = "Stop Listening"
	LabelThinking  = "Thinking..."
	LabelSpeaking  = "Speaking..."
)

func IdleLabel(assistantName string) string {
	return "Ask " + assistantName
}

// session is the orchestrator's live state. It is only touched with
// Orchestrator.mu held.
type session struct {
	state          domain.State
	controlEnabled bool
	recording      bool
	turnID         string
	closed         bool

	transcript *string
	response   *string
	playback   Playback

	profile        domain.LanguageProfile
	speakerEnabled bool

	log []domain.LogEntry
}

func (s *session) label() string {
	switch s.state {
	case domain.StateRecording:
		return LabelRecording
	case domain.StateTranscribing, domain.StateResponding:
		return LabelThinking
	case domain.StateSpeaking:
		return LabelSpeaking
	default:
		return IdleLabel(s.profile.AssistantName)
	}
}

func (s *session) stateEvent() StateEvent {
	return StateEvent{
		TurnID:         s.turnID,
		State:          s.state,
		ControlEnabled: s.controlEnabled,
		Label:          s.label(),
		Profile:        s.profile.Name,
	}
}

// takePlayback detaches the active playback handle, leaving none held.
func (s *session) takePlayback() Playback {
	pb := s.playback
	s.playback = nil
	return pb
}

// Snapshot is a copy of the session for rendering.
type Snapshot struct {
	State          domain.State           `json:"state"`
	ControlEnabled bool                   `json:"controlEnabled"`
	Recording      bool                   `json:"recording"`
	Label          string                 `json:"label"`
	Profile        domain.LanguageProfile `json:"profile"`
	SpeakerEnabled bool                   `json:"speakerEnabled"`
	Transcript     *string                `json:"transcript,omitempty"`
	Response       *string                `json:"response,omitempty"`
	Playing        bool                   `json:"playing"`
	Log            []domain.LogEntry      `json:"log"`
}

func (s *session) snapshot() Snapshot {
	log := make([]domain.LogEntry, len(s.log))
	copy(log, s.log)
	return Snapshot{
		State:          s.state,
		ControlEnabled: s.controlEnabled,
		Recording:      s.recording,
		Label:          s.label(),
		Profile:        s.profile,
		SpeakerEnabled: s.speakerEnabled,
		Transcript:     copyString(s.transcript),
		Response:       copyString(s.response),
		Playing:        s.playback != nil,
		Log:            log,
	}
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
