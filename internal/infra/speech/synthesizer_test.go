package speech_test

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ramu/internal/domain"
	"ramu/internal/infra/speech"
)

func TestSynthesizer_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "speech-key" {
			t.Errorf("subscription key: got %q", got)
		}
		if got := r.Header.Get("X-Microsoft-OutputFormat"); got != speech.OutputFormat {
			t.Errorf("output format: got %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != speech.DefaultUserAgent {
			t.Errorf("user agent: got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/ssml+xml" {
			t.Errorf("content type: got %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "<voice name='en-US-GuyNeural'>hi there</voice>") {
			t.Errorf("ssml: got %s", body)
		}
		if !strings.Contains(string(body), "xml:lang='en-US'") {
			t.Errorf("ssml locale missing: %s", body)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3 mp3 bytes"))
	}))
	defer server.Close()

	client := speech.NewSynthesizerWithURL("speech-key", server.URL, "", discardLogger())

	stream, err := client.Synthesize(context.Background(), "hi there", "en-US", "en-US-GuyNeural")
	if err != nil {
		t.Fatalf("Synthesize error: %v", err)
	}
	defer stream.Close()

	audio, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("reading audio: %v", err)
	}
	if string(audio) != "ID3 mp3 bytes" {
		t.Errorf("audio: got %q", audio)
	}
}

func TestSynthesizer_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := speech.NewSynthesizerWithURL("speech-key", server.URL, "", discardLogger()).
		Synthesize(context.Background(), "text", "en-US", "en-US-GuyNeural")
	if !errors.Is(err, domain.ErrTransportFailure) {
		t.Fatalf("expected transport failure, got %v", err)
	}

	_, err = speech.NewSynthesizerWithURL("", server.URL, "", discardLogger()).
		Synthesize(context.Background(), "text", "en-US", "en-US-GuyNeural")
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}
}

func TestBuildSSML_Escapes(t *testing.T) {
	ssml := speech.BuildSSML(`</voice><voice name='x'>"A" & B`, "en-US", "en-US-GuyNeural")

	if strings.Contains(ssml, "</voice><voice") {
		t.Fatalf("markup injected: %s", ssml)
	}

	var doc struct {
		Voice struct {
			Name string `xml:"name,attr"`
			Text string `xml:",chardata"`
		} `xml:"voice"`
	}
	if err := xml.Unmarshal([]byte(ssml), &doc); err != nil {
		t.Fatalf("ssml is not well-formed: %v", err)
	}
	if doc.Voice.Name != "en-US-GuyNeural" {
		t.Errorf("voice name: got %q", doc.Voice.Name)
	}
	if doc.Voice.Text != `</voice><voice name='x'>"A" & B` {
		t.Errorf("voice text: got %q", doc.Voice.Text)
	}
}
