package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// InlineImage — картинка, встроенная прямо в запрос (base64 без data-URI префикса)
type InlineImage struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type Message struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	Image     *InlineImage `json:"image,omitempty"`
}

type ChatSession struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
	Preview   string    `json:"preview"`
}

type ChatRequest struct {
	Message string       `json:"message"`
	Image   *InlineImage `json:"image,omitempty"`
}

type ChatResponse struct {
	Messages []Message `json:"messages"`
	State    string    `json:"state"`
}

type CredentialRequest struct {
	Key string `json:"key"`
}

type CredentialStatus struct {
	Source     string `json:"source"`
	Configured bool   `json:"configured"`
}
