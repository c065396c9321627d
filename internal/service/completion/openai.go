package completion

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

func NewOpenAI(baseURL, model, apiKey string, client *http.Client) *OpenAI {
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: client,
	}
}

func (o *OpenAI) Name() string { return "openai" }

type openAIRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}

	raw, err := postJSON(ctx, o.httpClient, o.Name(), o.baseURL+"/chat/completions", headers, openAIRequest{
		Model:    o.model,
		Messages: chatMessages(req),
	})
	if err != nil {
		return "", err
	}

	var resp openAIResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%s: %w: %v", o.Name(), ErrMalformedPayload, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w: no choices", o.Name(), ErrMalformedPayload)
	}
	return resp.Choices[0].Message.Content, nil
}
