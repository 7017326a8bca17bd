package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ramu/internal/domain"
)

// ErrBusy is returned when the record control is disabled, either because a
// turn is being processed or because capture is still starting.
var ErrBusy = errors.New("assistant is busy")

// ErrClosed is returned by every entry point once Close has been called.
var ErrClosed = errors.New("assistant is closed")

// Settings is the initial, user-changeable configuration of a session.
type Settings struct {
	Profile        string
	SpeakerEnabled bool
}

// Orchestrator owns the session and drives each turn through
// record → transcribe → chat → synthesize.
type Orchestrator struct {
	capture  AudioCapture
	stt      Transcriber
	chat     ChatCompleter
	tts      Synthesizer
	player   AudioPlayer
	profiles ProfileRegistry
	events   EventSink
	notifier Notifier
	logger   *slog.Logger

	newID func() string
	now   func() time.Time

	mu sync.Mutex
	s  session
}

func NewOrchestrator(
	capture AudioCapture,
	stt Transcriber,
	chat ChatCompleter,
	tts Synthesizer,
	player AudioPlayer,
	profiles ProfileRegistry,
	events EventSink,
	notifier Notifier,
	settings Settings,
	logger *slog.Logger,
) *Orchestrator {
	if events == nil {
		events = NoopSink{}
	}
	if notifier == nil {
		notifier = &NoopNotifier{}
	}

	profile := profiles.Default()
	if settings.Profile != "" {
		p, err := profiles.Resolve(settings.Profile)
		if err != nil {
			logger.Warn("unknown profile, using default", "profile", settings.Profile, "default", profile.Name)
		} else {
			profile = p
		}
	}

	return &Orchestrator{
		capture:  capture,
		stt:      stt,
		chat:     chat,
		tts:      tts,
		player:   player,
		profiles: profiles,
		events:   events,
		notifier: notifier,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
		s: session{
			state:          domain.StateIdle,
			controlEnabled: true,
			profile:        profile,
			speakerEnabled: settings.SpeakerEnabled,
		},
	}
}

// Toggle starts a recording when idle, or stops it and runs the rest of the
// turn. It returns once the session is back to accepting input.
func (o *Orchestrator) Toggle(ctx context.Context) error {
	done, err := o.ToggleAsync(ctx)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// ToggleAsync performs the same transition as Toggle but runs the turn in the
// background. The returned channel is closed when the control is re-enabled.
func (o *Orchestrator) ToggleAsync(ctx context.Context) (<-chan struct{}, error) {
	o.mu.Lock()
	if o.s.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if !o.s.controlEnabled {
		o.mu.Unlock()
		return nil, ErrBusy
	}

	done := make(chan struct{})

	switch o.s.state {
	case domain.StateIdle:
		previous := o.beginRecordingLocked()
		o.mu.Unlock()

		o.startRecording(ctx, previous)
		close(done)
		return done, nil

	case domain.StateRecording:
		turn := o.beginTurnLocked()
		o.mu.Unlock()

		go func() {
			defer close(done)
			o.runTurn(ctx, turn)
		}()
		return done, nil

	default:
		o.mu.Unlock()
		return nil, ErrBusy
	}
}

func (o *Orchestrator) beginRecordingLocked() Playback {
	o.s.controlEnabled = false
	o.s.turnID = ""
	return o.s.takePlayback()
}

func (o *Orchestrator) startRecording(ctx context.Context, previous Playback) {
	if previous != nil {
		o.logger.Info("interrupting playback for new recording")
		releasePlayback(previous, o.logger)
	}

	err := o.capture.Start(ctx)

	o.mu.Lock()
	o.s.controlEnabled = true
	if err != nil {
		o.s.state = domain.StateIdle
		o.surfaceLocked("record", captureError("start capture", err))
	} else {
		o.s.state = domain.StateRecording
		o.s.recording = true
		o.s.transcript = nil
		o.s.response = nil
	}
	o.events.StateChanged(o.s.stateEvent())
	o.mu.Unlock()

	if err != nil {
		o.notify(ctx, err)
	}
}

// turn is the configuration captured when recording stops. Profile changes
// made after this point only affect the next turn.
type turn struct {
	id      string
	profile domain.LanguageProfile
}

func (o *Orchestrator) beginTurnLocked() turn {
	t := turn{id: o.newID(), profile: o.s.profile}
	o.s.turnID = t.id
	o.s.controlEnabled = false
	o.s.recording = false
	o.transitionLocked(domain.StateTranscribing)
	return t
}

func (o *Orchestrator) runTurn(ctx context.Context, t turn) {
	var failure error
	defer func() {
		o.finishTurn(ctx, failure)
	}()

	transcription := o.transcribe(ctx, t)
	if !transcription.OK() {
		o.appendEntry(t, domain.EntryNoTranscript, domain.EmphasisMuted, domain.NoTranscriptText)
		failure = o.surface("transcription", transcription.Err)
		return
	}

	o.mu.Lock()
	o.s.transcript = &transcription.Text
	o.appendLocked(t, domain.EntryTranscript, domain.EmphasisStrong, transcription.Text)
	o.transitionLocked(domain.StateResponding)
	o.mu.Unlock()

	reply := o.complete(ctx, transcription.Text)
	if !reply.OK() {
		o.appendEntry(t, domain.EntryNoResponse, domain.EmphasisMuted, domain.NoResponseText)
		failure = o.surface("chat", reply.Err)
		return
	}

	o.mu.Lock()
	o.s.response = &reply.Text
	o.appendLocked(t, domain.EntryResponse, domain.EmphasisNormal, reply.Text)
	speak := o.s.speakerEnabled
	if speak {
		o.transitionLocked(domain.StateSpeaking)
	}
	o.mu.Unlock()

	if !speak {
		return
	}

	if err := o.speak(ctx, t, reply.Text); err != nil {
		o.appendEntry(t, domain.EntrySynthesisFailed, domain.EmphasisMuted, domain.SynthesisFailedText)
		failure = o.surface("synthesis", err)
	}
}

func (o *Orchestrator) transcribe(ctx context.Context, t turn) domain.TranscriptionResult {
	audio, err := o.capture.Stop(ctx)
	if err != nil {
		return domain.TranscriptionResult{Err: captureError("stop capture", err)}
	}
	if len(audio) == 0 {
		return domain.TranscriptionResult{Err: &domain.Error{
			Kind: domain.KindNoCaptureData,
			Op:   "stop capture",
			Err:  domain.ErrNoCaptureData,
		}}
	}

	o.logger.Info("transcribing", "turn", t.id, "bytes", len(audio), "locale", t.profile.SpeechLocale)

	text, err := o.stt.Transcribe(ctx, audio, t.profile.SpeechLocale)
	if err != nil {
		return domain.TranscriptionResult{Err: err}
	}
	if text == "" {
		o.logger.Info("nothing recognized", "turn", t.id)
	}
	return domain.TranscriptionResult{Text: text}
}

func (o *Orchestrator) complete(ctx context.Context, prompt string) domain.ChatResult {
	text, err := o.chat.Complete(ctx, prompt)
	if err != nil {
		return domain.ChatResult{Err: err}
	}
	return domain.ChatResult{Text: text}
}

func (o *Orchestrator) speak(ctx context.Context, t turn, text string) error {
	audio, err := o.tts.Synthesize(ctx, text, t.profile.SpeechLocale, t.profile.VoiceID)
	if err != nil {
		return err
	}

	o.mu.Lock()
	previous := o.s.takePlayback()
	o.mu.Unlock()

	if previous != nil {
		releasePlayback(previous, o.logger)
	}

	pb, err := o.player.Play(ctx, audio)
	if err != nil {
		audio.Close()
		return &domain.Error{Kind: domain.KindPlayback, Op: "play", Err: err}
	}

	o.mu.Lock()
	if o.s.closed {
		o.mu.Unlock()
		o.logger.Info("session closed during synthesis, discarding playback", "turn", t.id)
		releasePlayback(pb, o.logger)
		return nil
	}
	o.s.playback = pb
	o.mu.Unlock()

	o.logger.Info("playing response", "turn", t.id, "player", o.player.Name())
	return nil
}

func (o *Orchestrator) finishTurn(ctx context.Context, failure error) {
	o.mu.Lock()
	o.s.controlEnabled = true
	o.transitionLocked(domain.StateIdle)
	o.mu.Unlock()

	if failure != nil {
		o.notify(ctx, failure)
	}
}

// SelectProfile changes the profile used from the next turn on.
func (o *Orchestrator) SelectProfile(name string) error {
	p, err := o.profiles.Resolve(name)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.surfaceLocked("profile", err)
		return err
	}

	o.s.profile = p
	if o.s.state == domain.StateIdle {
		o.events.StateChanged(o.s.stateEvent())
	}
	o.logger.Info("profile selected", "profile", p.Name, "locale", p.SpeechLocale, "voice", p.VoiceID)
	return nil
}

// SetSpeakerEnabled controls whether responses are spoken. It never stops a
// playback that is already running.
func (o *Orchestrator) SetSpeakerEnabled(enabled bool) {
	o.mu.Lock()
	o.s.speakerEnabled = enabled
	o.mu.Unlock()
}

func (o *Orchestrator) Profiles() []string {
	return o.profiles.List()
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.s.snapshot()
}

// Close stops any active playback and abandons an unfinished recording. A turn
// still in flight runs to completion but never keeps the playback it starts.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	o.s.closed = true
	pb := o.s.takePlayback()
	recording := o.s.recording
	o.s.recording = false
	o.mu.Unlock()

	if pb != nil {
		releasePlayback(pb, o.logger)
	}
	if recording {
		if _, err := o.capture.Stop(ctx); err != nil {
			return fmt.Errorf("stopping capture: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) transitionLocked(state domain.State) {
	o.s.state = state
	o.events.StateChanged(o.s.stateEvent())
}

func (o *Orchestrator) appendEntry(t turn, kind domain.EntryKind, emphasis domain.Emphasis, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.appendLocked(t, kind, emphasis, text)
}

func (o *Orchestrator) appendLocked(t turn, kind domain.EntryKind, emphasis domain.Emphasis, text string) {
	entry := domain.LogEntry{
		Seq:      len(o.s.log) + 1,
		TurnID:   t.id,
		Kind:     kind,
		Emphasis: emphasis,
		Text:     text,
		At:       o.now(),
	}
	o.s.log = append(o.s.log, entry)
	o.events.LogAppended(entry)
}

// surface reports err, if any, and returns it for the notifier.
func (o *Orchestrator) surface(stage string, err error) error {
	if err == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.surfaceLocked(stage, err)
	return err
}

func (o *Orchestrator) surfaceLocked(stage string, err error) {
	ev := ErrorEvent{
		TurnID:  o.s.turnID,
		Kind:    domain.KindOf(err),
		Stage:   stage,
		Message: errorMessage(stage, err),
	}
	o.logger.Warn("stage failed", "stage", stage, "kind", ev.Kind, "error", err, "turn", ev.TurnID)
	o.events.Error(ev)
}

func (o *Orchestrator) notify(ctx context.Context, err error) {
	if nerr := o.notifier.Notify(ctx, fmt.Sprintf("Error: %s", err.Error())); nerr != nil {
		o.logger.Error("notifying error", "error", nerr)
	}
}

func errorMessage(stage string, err error) string {
	switch domain.KindOf(err) {
	case domain.KindMissingCredential:
		return fmt.Sprintf("%s is not configured: missing credential", stage)
	case domain.KindNoCaptureData:
		return "Nothing was recorded."
	case domain.KindUnknownProfile:
		return err.Error()
	}
	return fmt.Sprintf("%s failed: %v", stage, err)
}

func captureError(op string, err error) error {
	if errors.Is(err, domain.ErrNoCaptureData) {
		return &domain.Error{Kind: domain.KindNoCaptureData, Op: op, Err: err}
	}
	return &domain.Error{Kind: domain.KindCapture, Op: op, Err: err}
}

func releasePlayback(pb Playback, logger *slog.Logger) {
	if err := pb.Stop(); err != nil {
		logger.Warn("stopping playback", "error", err)
	}
	if err := pb.Release(); err != nil {
		logger.Warn("releasing playback", "error", err)
	}
}
