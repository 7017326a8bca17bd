package profiles_test

import (
	"errors"
	"testing"

	"ramu/internal/domain"
	"ramu/internal/infra/profiles"
)

func TestRegistry_ResolveAll(t *testing.T) {
	reg := profiles.MustDefault()

	names := reg.List()
	if len(names) != 4 {
		t.Fatalf("profiles count: got %d, want 4", len(names))
	}

	for _, name := range names {
		p, err := reg.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", name, err)
		}
		if p.SpeechLocale == "" || p.VoiceID == "" {
			t.Errorf("profile %q has empty locale or voice", name)
		}
	}
}

func TestRegistry_ResolveEnglish(t *testing.T) {
	reg := profiles.MustDefault()

	p, err := reg.Resolve("  english ")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if p.SpeechLocale != "en-US" {
		t.Errorf("SpeechLocale: got %s, want en-US", p.SpeechLocale)
	}
	if p.VoiceID != "en-US-GuyNeural" {
		t.Errorf("VoiceID: got %s, want en-US-GuyNeural", p.VoiceID)
	}
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	reg := profiles.MustDefault()

	_, err := reg.Resolve("Klingon")
	if !errors.Is(err, domain.ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
	if domain.KindOf(err) != domain.KindUnknownProfile {
		t.Errorf("kind: got %s", domain.KindOf(err))
	}
}

func TestRegistry_Default(t *testing.T) {
	reg := profiles.MustDefault()
	if got := reg.Default().Name; got != profiles.DefaultName {
		t.Errorf("Default: got %s, want %s", got, profiles.DefaultName)
	}

	custom, err := profiles.NewRegistry([]domain.LanguageProfile{
		{Name: "French", SpeechLocale: "fr-FR", AssistantName: "Ramu", VoiceID: "fr-FR-HenriNeural"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := custom.Default().Name; got != "French" {
		t.Errorf("Default without English: got %s, want French", got)
	}
}

func TestNewRegistry_Rejects(t *testing.T) {
	tests := []struct {
		name string
		list []domain.LanguageProfile
	}{
		{"empty", nil},
		{"missing voice", []domain.LanguageProfile{{Name: "English", SpeechLocale: "en-US"}}},
		{"duplicate", []domain.LanguageProfile{
			{Name: "English", SpeechLocale: "en-US", VoiceID: "a"},
			{Name: "ENGLISH", SpeechLocale: "en-GB", VoiceID: "b"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := profiles.NewRegistry(tt.list); err == nil {
				t.Error("expected error")
			}
		})
	}
}
