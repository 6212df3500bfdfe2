package domain

import "strings"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response is the result of a single model generation call.
type Response struct {
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
	Model     string `json:"model,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// HasContent reports whether the response carries any visible text.
func (r Response) HasContent() bool {
	return strings.TrimSpace(r.Content) != ""
}
