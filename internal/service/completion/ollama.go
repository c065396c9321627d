package completion

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// Ollama calls a local Ollama instance through POST /api/chat.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOllama(baseURL, model string, client *http.Client) *Ollama {
	if client == nil {
		client = &http.Client{}
	}
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: client,
	}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message    Message `json:"message"`
	DoneReason string  `json:"done_reason"`
	Done       bool    `json:"done"`
}

func (o *Ollama) Complete(ctx context.Context, req Request) (string, error) {
	raw, err := postJSON(ctx, o.httpClient, o.Name(), o.baseURL+"/api/chat", nil, ollamaChatRequest{
		Model:    o.model,
		Messages: chatMessages(req),
	})
	if err != nil {
		return "", err
	}

	var resp ollamaChatResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%s: %w: %v", o.Name(), ErrMalformedPayload, err)
	}
	return resp.Message.Content, nil
}
