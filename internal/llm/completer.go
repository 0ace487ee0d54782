package llm

import "context"

// Completer narrows the gateway to the single-prompt call the answer
// assembler consumes: one prompt string in, generated text out.
// Provider routing, retries, and fallback stay the gateway's concern.
type Completer struct {
	gateway Gateway
	model   string
}

func NewCompleter(gw Gateway, model string) *Completer {
	return &Completer{gateway: gw, model: model}
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.gateway.Chat(ctx, ChatRequest{
		Model:    c.model,
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
