package types

// Message is one chat turn.
type Message struct {
	// Role of the author: system, user, assistant or tool.
	// example: user
	Role string `json:"role" validate:"required,oneof=system user assistant tool" example:"user"`
	// Message text.
	// example: Write a haiku about the ocean.
	Content string `json:"content" validate:"required" example:"Write a haiku about the ocean."`
}

// ChatRequest is the OpenAI-compatible payload accepted by POST /v1/chat/completions.
type ChatRequest struct {
	// Model identifier forwarded to the backend.
	// example: model.gguf
	Model string `json:"model" validate:"required" example:"model.gguf"`
	// Conversation so far. At least one message is required.
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
	// Sampling temperature; defaults to 0.7 when omitted.
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2" example:"0.7"`
	// Maximum number of new tokens; defaults to 100 when omitted.
	// example: 100
	MaxTokens *int `json:"max_tokens,omitempty" validate:"omitempty,gt=0" example:"100"`
	// Stream the response as server-sent events.
	Stream bool `json:"stream,omitempty"`
}

// Defaults applied to ChatRequest fields that were omitted.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 100
)

// UpstreamChatRequest is the body forwarded to the backend.
type UpstreamChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// HealthResponse is returned by the liveness endpoints.
type HealthResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
	// True when the backend is considered reachable.
	Upstream bool `json:"upstream"`
	// Current operating mode.
	// example: full
	Mode Mode `json:"mode" example:"full"`
}
