package completion

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/buger/jsonparser"
)

// HuggingFace calls the hosted inference API for a text-generation model.
type HuggingFace struct {
	baseURL     string
	model       string
	token       string
	maxLength   int
	temperature float64
	httpClient  *http.Client
}

// HuggingFaceOptions configures NewHuggingFace.
type HuggingFaceOptions struct {
	BaseURL     string
	Model       string
	Token       string
	MaxLength   int
	Temperature float64
	HTTPClient  *http.Client
}

func NewHuggingFace(opts HuggingFaceOptions) *HuggingFace {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = 100
	}
	return &HuggingFace{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		token:       opts.Token,
		maxLength:   maxLength,
		temperature: opts.Temperature,
		httpClient:  client,
	}
}

func (h *HuggingFace) Name() string { return "huggingface" }

type hfParameters struct {
	MaxLength   int     `json:"max_length"`
	Temperature float64 `json:"temperature"`
	DoSample    bool    `json:"do_sample"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

func (h *HuggingFace) Complete(ctx context.Context, req Request) (string, error) {
	prompt := hfPrompt(req)
	headers := map[string]string{}
	if h.token != "" {
		headers["Authorization"] = "Bearer " + h.token
	}

	raw, err := postJSON(ctx, h.httpClient, h.Name(), h.baseURL+"/"+h.model, headers, hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxLength:   h.maxLength,
			Temperature: h.temperature,
			DoSample:    true,
		},
	})
	if err != nil {
		return "", err
	}

	text, err := parseGeneratedText(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", h.Name(), err)
	}
	return strings.TrimSpace(strings.ReplaceAll(text, prompt, "")), nil
}

// hfPrompt folds the persona prompt and the message into a single input,
// since the inference API takes plain text.
func hfPrompt(req Request) string {
	if req.PersonaPrompt == "" {
		return req.Message
	}
	return req.PersonaPrompt + " User says: " + req.Message
}

// parseGeneratedText accepts [{generated_text}], {generated_text} or
// {error}. Anything else is malformed.
func parseGeneratedText(raw []byte) (string, error) {
	_, dataType, _, err := jsonparser.Get(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch dataType {
	case jsonparser.Array:
		text, err := jsonparser.GetString(raw, "[0]", "generated_text")
		if err != nil {
			return "", fmt.Errorf("%w: missing [0].generated_text", ErrMalformedPayload)
		}
		return text, nil
	case jsonparser.Object:
		if msg, err := jsonparser.GetString(raw, "error"); err == nil {
			return "", fmt.Errorf("remote error: %s", msg)
		}
		text, err := jsonparser.GetString(raw, "generated_text")
		if err != nil {
			return "", fmt.Errorf("%w: missing generated_text", ErrMalformedPayload)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: unexpected %s", ErrMalformedPayload, dataType)
	}
}
