package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ramu/internal/domain"
	"ramu/internal/infra"
)

const completeOp = "chat completion"

// Generation parameters are fixed for every request.
const (
	Temperature      = 0.7
	MaxTokens        = 800
	TopP             = 0.95
	FrequencyPenalty = 0
	PresencePenalty  = 0
)

const (
	DefaultDeployment = "gpt-35-turbo"
	DefaultAPIVersion = "2024-02-15-preview"
)

// ChatClient talks to an Azure OpenAI chat-completions deployment.
type ChatClient struct {
	apiKey     string
	httpClient *http.Client
	url        string
	logger     *slog.Logger
}

func NewChatClient(apiKey, endpoint, deployment, apiVersion string, logger *slog.Logger) *ChatClient {
	return NewChatClientWithURL(apiKey, CompletionsURL(endpoint, deployment, apiVersion), logger)
}

func NewChatClientWithURL(apiKey, completionsURL string, logger *slog.Logger) *ChatClient {
	return &ChatClient{
		apiKey:     apiKey,
		httpClient: infra.NewHTTPClient(infra.DefaultTimeout),
		url:        completionsURL,
		logger:     logger,
	}
}

// SetTimeout replaces the per-call deadline. Zero disables it.
func (c *ChatClient) SetTimeout(d time.Duration) {
	c.httpClient = infra.NewHTTPClient(d)
}

// CompletionsURL builds the deployment URL from the resource endpoint.
func CompletionsURL(endpoint, deployment, apiVersion string) string {
	if deployment == "" {
		deployment = DefaultDeployment
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimSuffix(endpoint, "/"), url.PathEscape(deployment), url.QueryEscape(apiVersion))
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Messages         []message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	MaxTokens        int       `json:"max_tokens"`
	TopP             float64   `json:"top_p"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	PresencePenalty  float64   `json:"presence_penalty"`
}

type response struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the first
// choice's content.
func (c *ChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", domain.MissingCredential(completeOp)
	}

	bodyBytes, err := json.Marshal(request{
		Messages:         []message{{Role: "user", Content: prompt}},
		Temperature:      Temperature,
		MaxTokens:        MaxTokens,
		TopP:             TopP,
		FrequencyPenalty: FrequencyPenalty,
		PresencePenalty:  PresencePenalty,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", infra.SendFailure(completeOp, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	c.logger.Debug("requesting chat completion", "prompt_chars", len(prompt))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", infra.SendFailure(completeOp, err)
	}
	defer resp.Body.Close()

	if err := infra.CheckResponse(completeOp, resp); err != nil {
		return "", err
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", infra.DecodeFailure(completeOp, err)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message == nil || result.Choices[0].Message.Content == nil {
		return "", domain.TransportFailure(completeOp,
			fmt.Errorf("%w: response has no choices[0].message.content", domain.ErrTransportFailure))
	}

	return *result.Choices[0].Message.Content, nil
}
