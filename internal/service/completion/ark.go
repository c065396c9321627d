package completion

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Ark runs a chat model through a system/history/query prompt chain.
type Ark struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArk compiles the prompt chain around chatModel. Any eino ChatModel
// works; the registry passes the Volcengine Ark model.
func NewArk(ctx context.Context, chatModel model.ChatModel) (*Ark, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	return &Ark{chain: runnable}, nil
}

func (a *Ark) Name() string { return "ark" }

func (a *Ark) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := a.chain.Invoke(ctx, map[string]any{
		"system":  req.PersonaPrompt,
		"history": historyMessages(req.History),
		"query":   req.Message,
	})
	if err != nil {
		return "", fmt.Errorf("%s: run chain: %w", a.Name(), err)
	}
	if resp == nil {
		return "", fmt.Errorf("%s: %w", a.Name(), ErrEmptyCompletion)
	}
	return resp.Content, nil
}

func historyMessages(history []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case "user":
			out = append(out, schema.UserMessage(m.Content))
		case "assistant":
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}
