package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ramu/internal/domain"
)

type Config struct {
	Speech    SpeechConfig             `yaml:"speech"`
	Chat      ChatConfig               `yaml:"chat"`
	Remote    RemoteConfig             `yaml:"remote"`
	Audio     AudioConfig              `yaml:"audio"`
	Assistant AssistantConfig          `yaml:"assistant"`
	Profiles  []domain.LanguageProfile `yaml:"profiles"`
	Control   ControlConfig            `yaml:"control"`
	Pushover  PushoverConfig           `yaml:"pushover"`
	Log       LogConfig                `yaml:"log"`
}

type SpeechConfig struct {
	APIKey      string `yaml:"api_key"`
	Region      string `yaml:"region"`
	STTEndpoint string `yaml:"stt_endpoint"`
	TTSEndpoint string `yaml:"tts_endpoint"`
	UserAgent   string `yaml:"user_agent"`
}

type ChatConfig struct {
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

// RemoteConfig applies to every speech and chat call. Timeout is a Go
// duration; "0" leaves deadlines to the transport.
type RemoteConfig struct {
	Timeout string `yaml:"timeout"`
}

type AudioConfig struct {
	Capture       string   `yaml:"capture"`
	CaptureDir    string   `yaml:"capture_dir"`
	SampleRate    int      `yaml:"sample_rate"`
	Playback      string   `yaml:"playback"`
	PlayerCommand []string `yaml:"player_command"`
	OutputDir     string   `yaml:"output_dir"`
}

type AssistantConfig struct {
	Profile        string `yaml:"profile"`
	SpeakerEnabled *bool  `yaml:"speaker_enabled"`
}

// ControlConfig configures the HTTP control surface. TrustProxyHeaders keys
// rate limiting on X-Forwarded-For / X-Real-IP; enable it only behind a
// reverse proxy that sets them.
type ControlConfig struct {
	HTTPAddr          string `yaml:"http_addr"`
	AuthToken         string `yaml:"auth_token"`
	TrustProxyHeaders bool   `yaml:"trust_proxy_headers"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Credential environment variables, checked when the YAML leaves a key empty.
var (
	speechKeyEnv = []string{"AZURE_SPEECH_KEY", "AzSpeechKey"}
	chatKeyEnv   = []string{"AZURE_OPENAI_KEY", "AzOpenAIKey"}
)

// Load reads the YAML file at path after loading an optional .env file next
// to the working directory. A missing config file is not an error: defaults
// and the environment are used instead.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Speech.APIKey == "" {
		c.Speech.APIKey = firstEnv(speechKeyEnv)
	}
	if c.Speech.Region == "" {
		c.Speech.Region = "westus3"
	}
	if c.Chat.APIKey == "" {
		c.Chat.APIKey = firstEnv(chatKeyEnv)
	}
	if c.Chat.Endpoint == "" {
		c.Chat.Endpoint = "https://ramu-openai.openai.azure.com"
	}
	if c.Remote.Timeout == "" {
		c.Remote.Timeout = "30s"
	}
	if c.Audio.Capture == "" {
		c.Audio.Capture = "microphone"
	}
	if c.Audio.CaptureDir == "" {
		c.Audio.CaptureDir = "./audio/in"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Playback == "" {
		c.Audio.Playback = "command"
	}
	if c.Audio.OutputDir == "" {
		c.Audio.OutputDir = "./audio/out"
	}
	if c.Assistant.SpeakerEnabled == nil {
		enabled := true
		c.Assistant.SpeakerEnabled = &enabled
	}
	if c.Control.HTTPAddr == "" {
		c.Control.HTTPAddr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if d, err := time.ParseDuration(c.Remote.Timeout); err != nil || d < 0 {
		return fmt.Errorf("remote.timeout: invalid duration %q", c.Remote.Timeout)
	}
	switch c.Audio.Capture {
	case "microphone", "file":
	default:
		return fmt.Errorf("audio.capture: unknown source %q", c.Audio.Capture)
	}
	switch c.Audio.Playback {
	case "command", "file", "none":
	default:
		return fmt.Errorf("audio.playback: unknown sink %q", c.Audio.Playback)
	}
	if c.Audio.SampleRate < 8000 {
		return fmt.Errorf("audio.sample_rate: %d is too low", c.Audio.SampleRate)
	}
	return nil
}

// RequestTimeout is the validated remote.timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Remote.Timeout)
	return d
}

// MissingCredentials names the services that will fail for lack of a key.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.Speech.APIKey == "" {
		missing = append(missing, "speech ("+strings.Join(speechKeyEnv, " or ")+")")
	}
	if c.Chat.APIKey == "" {
		missing = append(missing, "chat ("+strings.Join(chatKeyEnv, " or ")+")")
	}
	return missing
}

func firstEnv(names []string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}
