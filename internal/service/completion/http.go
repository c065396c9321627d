package completion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"
	maxResponseBytes  = 1 << 20
)

// postJSON marshals payload, POSTs it and returns the body of a 2xx answer.
// Any other status becomes a *StatusError.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", provider, err)
	}
	req.Header.Set(headerContentType, mimeJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: provider, Code: resp.StatusCode}
	}
	return raw, nil
}

// chatMessages flattens persona prompt, history and the new message into
// role/content pairs for chat-style endpoints.
func chatMessages(req Request) []Message {
	msgs := make([]Message, 0, len(req.History)+2)
	if req.PersonaPrompt != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.PersonaPrompt})
	}
	for _, m := range req.History {
		if m.Content == "" {
			continue
		}
		msgs = append(msgs, m)
	}
	return append(msgs, Message{Role: "user", Content: req.Message})
}
