package domain

// LanguageProfile bundles the per-language settings used for one turn.
type LanguageProfile struct {
	Name          string `yaml:"name" json:"name"`
	SpeechLocale  string `yaml:"speech_locale" json:"speechLocale"`
	AssistantName string `yaml:"assistant_name" json:"assistantName"`
	VoiceID       string `yaml:"voice_id" json:"voiceId"`
}

func (p LanguageProfile) Valid() bool {
	return p.Name != "" && p.SpeechLocale != "" && p.VoiceID != ""
}
