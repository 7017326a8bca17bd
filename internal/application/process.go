package application

import (
	"context"
	"io"

	"ramu/internal/domain"
)

// NoChatResponseText is reported by Process when the chat stage yields nothing.
const NoChatResponseText = "No response from Azure OpenAI."

// ProcessResult is the outcome of a one-shot Process call. Transcription and
// Response are set as far as the pipeline got; Error names the stage that
// stopped it.
type ProcessResult struct {
	Transcription *string `json:"transcription"`
	Response      *string `json:"response"`
	Error         *string `json:"error"`
	Audio         []byte  `json:"audio,omitempty"`
}

func (r *ProcessResult) fail(message string) {
	r.Error = &message
}

// Process runs transcribe → chat → (when speak is set) synthesize on audio
// without touching the interactive session: no state change, no log entry, no
// playback. An empty profile name means the currently selected profile.
// The returned error is reserved for unusable input; stage failures are
// reported in the result.
func (o *Orchestrator) Process(ctx context.Context, audio []byte, profileName string, speak bool) (ProcessResult, error) {
	o.mu.Lock()
	closed := o.s.closed
	profile := o.s.profile
	o.mu.Unlock()

	if closed {
		return ProcessResult{}, ErrClosed
	}
	if profileName != "" {
		p, err := o.profiles.Resolve(profileName)
		if err != nil {
			return ProcessResult{}, err
		}
		profile = p
	}
	if len(audio) == 0 {
		return ProcessResult{}, &domain.Error{Kind: domain.KindNoCaptureData, Op: "process", Err: domain.ErrNoCaptureData}
	}

	var result ProcessResult

	o.logger.Info("processing upload", "bytes", len(audio), "profile", profile.Name, "speak", speak)

	text, err := o.stt.Transcribe(ctx, audio, profile.SpeechLocale)
	if err != nil {
		o.logger.Warn("upload transcription failed", "kind", domain.KindOf(err), "error", err)
		result.fail(errorMessage("transcription", err))
		return result, nil
	}
	if text == "" {
		result.fail(domain.NoTranscriptText)
		return result, nil
	}
	result.Transcription = &text

	reply, err := o.chat.Complete(ctx, text)
	if err != nil {
		o.logger.Warn("upload chat failed", "kind", domain.KindOf(err), "error", err)
		result.fail(errorMessage("chat", err))
		return result, nil
	}
	if reply == "" {
		result.fail(NoChatResponseText)
		return result, nil
	}
	result.Response = &reply

	if !speak {
		return result, nil
	}

	stream, err := o.tts.Synthesize(ctx, reply, profile.SpeechLocale, profile.VoiceID)
	if err != nil {
		o.logger.Warn("upload synthesis failed", "kind", domain.KindOf(err), "error", err)
		result.fail(errorMessage("synthesis", err))
		return result, nil
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		result.fail(errorMessage("synthesis", domain.TransportFailure("synthesize", err)))
		return result, nil
	}
	result.Audio = data
	return result, nil
}
