package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceParsesListShapeAndStripsEcho(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/microsoft/DialoGPT-medium", r.URL.Path)
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))

		var body hfRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Parameters.DoSample)
		assert.Equal(t, 100, body.Parameters.MaxLength)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]string{{"generated_text": body.Inputs + " I missed you today!"}})
	}))
	defer srv.Close()

	hf := NewHuggingFace(HuggingFaceOptions{BaseURL: srv.URL, Model: "microsoft/DialoGPT-medium", Token: "hf-token", Temperature: 0.8})
	text, err := hf.Complete(context.Background(), Request{Message: "hi", PersonaPrompt: "You are Aria."})

	require.NoError(t, err)
	assert.Equal(t, "I missed you today!", text)
}

func TestParseGeneratedTextShapes(t *testing.T) {
	text, err := parseGeneratedText([]byte(`{"generated_text":"hello there"}`))
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)

	_, err = parseGeneratedText([]byte(`{"error":"Model is loading"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Model is loading")

	_, err = parseGeneratedText([]byte(`[]`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = parseGeneratedText([]byte(`"just a string"`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = parseGeneratedText([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestHuggingFaceNon200IsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHuggingFace(HuggingFaceOptions{BaseURL: srv.URL, Model: "m"}).Complete(context.Background(), Request{Message: "hi"})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Equal(t, "huggingface", statusErr.Provider)
}

func TestNonOKSuccessStatusIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"queued answer"}}]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL, "m", "key", nil).Complete(context.Background(), Request{Message: "hi"})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusAccepted, statusErr.Code)
}

func TestOllamaSendsChatMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var body ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body.Stream)
		require.Len(t, body.Messages, 4)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "user", body.Messages[3].Role)
		assert.Equal(t, "how are you?", body.Messages[3].Content)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "Doing well, thank you!"},
			"done":    true,
		})
	}))
	defer srv.Close()

	text, err := NewOllama(srv.URL, "llama3.2:3b", nil).Complete(context.Background(), Request{
		Message:       "how are you?",
		PersonaPrompt: "You are Aria.",
		History: []Message{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi there"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Doing well, thank you!", text)
}

func TestOllamaMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{oops"))
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "m", nil).Complete(context.Background(), Request{Message: "hi"})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestOpenAIReadsFirstChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Sure thing!"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	text, err := NewOpenAI(srv.URL+"/v1", "gpt-4o-mini", "sk-test", nil).Complete(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Sure thing!", text)
}

func TestOpenAINoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL, "m", "k", nil).Complete(context.Background(), Request{Message: "hi"})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

// Provider one hangs past the attempt timeout, provider two answers with
// 50 characters.
func TestClientFallsThroughSlowProviderOverHTTP(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	reply := strings.Repeat("x", 50)
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"role": "assistant", "content": reply}})
	}))
	defer fast.Close()

	client := NewClient([]Provider{
		NewHuggingFace(HuggingFaceOptions{BaseURL: slow.URL, Model: "m"}),
		NewOllama(fast.URL, "m", nil),
	}, 100*time.Millisecond)

	out := client.Complete(context.Background(), Request{Message: "hi"})
	require.Len(t, out.Attempts, 2)
	assert.False(t, out.Attempts[0].Succeeded)
	final, ok := out.Final()
	require.True(t, ok)
	assert.Equal(t, "ollama", final.Provider)
	assert.Len(t, final.Text, 50)
}

type echoChatModel struct {
	seen []*schema.Message
}

func (m *echoChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.seen = input
	return schema.AssistantMessage("echo: "+input[len(input)-1].Content, nil), nil
}

func (m *echoChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *echoChatModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func TestArkChainBuildsPrompt(t *testing.T) {
	cm := &echoChatModel{}
	ark, err := NewArk(context.Background(), cm)
	require.NoError(t, err)

	text, err := ark.Complete(context.Background(), Request{
		Message:       "good night",
		PersonaPrompt: "You are Aria.",
		History:       []Message{{Role: "user", Content: "hey"}, {Role: "assistant", Content: "hello!"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: good night", text)
	require.Len(t, cm.seen, 4)
	assert.Equal(t, schema.System, cm.seen[0].Role)
	assert.Equal(t, "You are Aria.", cm.seen[0].Content)
}
