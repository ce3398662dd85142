package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"assistant-gateway/internal/config"
)

// ErrDisabled is returned when the generative fallback is switched off or
// has no API key configured.
var ErrDisabled = errors.New("generative fallback disabled")

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	Config *config.Config
	http   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		Config: cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete generates a reply for a user message.
func (c *Client) Complete(userMessage string) (string, error) {
	if !c.Config.AIEnabled || c.Config.AIAPIKey == "" {
		return "", ErrDisabled
	}

	reqBody := chatRequest{
		Model: c.Config.AIModel,
		Messages: []chatMessage{
			{Role: "system", Content: c.Config.AISystemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature: 0.7,
	}
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", c.Config.AIEndpoint, bytes.NewReader(reqJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.Config.AIAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("chat completion: %s - %s", resp.Status, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	if parsed.Error != nil {
		return "", errors.New(parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
