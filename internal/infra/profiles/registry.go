package profiles

import (
	"fmt"
	"strings"

	"ramu/internal/domain"
)

// DefaultName is the profile used whenever a selection is missing or invalid.
const DefaultName = "English"

// Defaults returns the built-in language profiles in display order.
func Defaults() []domain.LanguageProfile {
	return []domain.LanguageProfile{
		{Name: "English", SpeechLocale: "en-US", AssistantName: "Ramu", VoiceID: "en-US-GuyNeural"},
		{Name: "Hindi", SpeechLocale: "hi-IN", AssistantName: "Ramu", VoiceID: "hi-IN-MadhurNeural"},
		{Name: "Bengali", SpeechLocale: "bn-IN", AssistantName: "Ramu", VoiceID: "bn-IN-BashkarNeural"},
		{Name: "Spanish", SpeechLocale: "es-ES", AssistantName: "Ramu", VoiceID: "es-ES-AlvaroNeural"},
	}
}

// Registry is an immutable, ordered set of language profiles.
type Registry struct {
	profiles []domain.LanguageProfile
	index    map[string]int
	fallback int
}

// NewRegistry builds a registry from profiles. Invalid entries and duplicate
// names are rejected. The fallback is the profile named DefaultName, or the
// first one when that name is absent.
func NewRegistry(list []domain.LanguageProfile) (*Registry, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("no language profiles configured")
	}

	r := &Registry{
		profiles: make([]domain.LanguageProfile, 0, len(list)),
		index:    make(map[string]int, len(list)),
	}

	for _, p := range list {
		if !p.Valid() {
			return nil, fmt.Errorf("profile %q: name, speech locale and voice id are required", p.Name)
		}
		key := normalize(p.Name)
		if _, dup := r.index[key]; dup {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		r.index[key] = len(r.profiles)
		r.profiles = append(r.profiles, p)
	}

	if i, ok := r.index[normalize(DefaultName)]; ok {
		r.fallback = i
	}

	return r, nil
}

// MustDefault returns the registry of built-in profiles.
func MustDefault() *Registry {
	r, err := NewRegistry(Defaults())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) List() []string {
	names := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		names[i] = p.Name
	}
	return names
}

// Resolve looks a profile up by name, ignoring case and surrounding spaces.
func (r *Registry) Resolve(name string) (domain.LanguageProfile, error) {
	i, ok := r.index[normalize(name)]
	if !ok {
		return domain.LanguageProfile{}, &domain.Error{
			Kind: domain.KindUnknownProfile,
			Op:   "resolve profile",
			Err:  fmt.Errorf("%w: %q", domain.ErrUnknownProfile, name),
		}
	}
	return r.profiles[i], nil
}

func (r *Registry) Default() domain.LanguageProfile {
	return r.profiles[r.fallback]
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
