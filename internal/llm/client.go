// Package llm abstracts the text-completion service behind one interface so
// the intent resolver and orchestrator never depend on a concrete provider.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage reports provider-side token accounting when available.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request is a provider-neutral completion request.
type Request struct {
	Model       string
	System      []string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// Response is the completed text plus provider metadata.
type Response struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Client is the one external capability this service consumes. No latency
// bound is guaranteed; callers must bring their own context deadline.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
