package core

import (
	"strings"

	"github.com/google/uuid"
)

// Role tags a message in the conversation transcript.
type Role string

const (
	// RoleSystem is the rendered system prompt. It is injected per round and never stored.
	RoleSystem Role = "system"
	// RoleHuman is end-user input.
	RoleHuman Role = "human"
	// RoleAssistant is backend output, possibly carrying action requests.
	RoleAssistant Role = "assistant"
	// RoleActionResult is the outcome of one action request.
	RoleActionResult Role = "action-result"
)

// ActionRequest is a capability invocation requested by the backend.
type ActionRequest struct {
	ID        string         `json:"id"`        // Correlation identifier
	Name      string         `json:"name"`      // Target capability name
	Arguments map[string]any `json:"arguments"` // Structured arguments
}

// Message is a unit of conversation history. After being appended to a
// transcript it must be treated as immutable.
//
// Assistant messages may carry ActionRequests. Action-result messages carry the
// correlation identifier (RequestID) and capability name (Name) they answer.
type Message struct {
	ID             string          `json:"id,omitempty"`
	Role           Role            `json:"role"`
	Parts          []Part          `json:"-"`
	ActionRequests []ActionRequest `json:"action_requests,omitempty"`
	RequestID      string          `json:"request_id,omitempty"`
	Name           string          `json:"name,omitempty"`
	IsError        bool            `json:"is_error,omitempty"`
}

// NewID generates a new unique identifier for messages and action requests.
func NewID() string { return uuid.NewString() }

// NewHumanMessage creates a human-authored text message.
func NewHumanMessage(text string) Message {
	return Message{ID: NewID(), Role: RoleHuman, Parts: []Part{TextPart{Text: text}}}
}

// NewSystemMessage creates a system message. System messages are sent to the
// backend each round but never appended to history.
func NewSystemMessage(text string) Message {
	return Message{ID: NewID(), Role: RoleSystem, Parts: []Part{TextPart{Text: text}}}
}

// NewAssistantMessage creates an assistant message with optional action requests.
func NewAssistantMessage(text string, requests ...ActionRequest) Message {
	m := Message{ID: NewID(), Role: RoleAssistant, ActionRequests: requests}
	if text != "" {
		m.Parts = []Part{TextPart{Text: text}}
	}
	return m
}

// NewActionResultMessage records the outcome of the action request identified
// by requestID. Result content may be a string or any structured value.
func NewActionResultMessage(requestID, name string, content any, isError bool) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleActionResult,
		Parts:     PartsFromValue(content),
		RequestID: requestID,
		Name:      name,
		IsError:   isError,
	}
}

// Text returns the concatenated textual content. Data parts are rendered as JSON.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		switch part := p.(type) {
		case TextPart:
			sb.WriteString(part.Text)
		case DataPart:
			sb.WriteString(part.Text())
		}
	}
	return sb.String()
}

// HasActionRequests reports whether the message asks for further action.
func (m Message) HasActionRequests() bool { return len(m.ActionRequests) > 0 }

// Clone returns a copy whose slices can be modified independently.
func (m Message) Clone() Message {
	c := m
	if m.Parts != nil {
		c.Parts = append([]Part(nil), m.Parts...)
	}
	if m.ActionRequests != nil {
		c.ActionRequests = make([]ActionRequest, len(m.ActionRequests))
		for i, r := range m.ActionRequests {
			args := make(map[string]any, len(r.Arguments))
			for k, v := range r.Arguments {
				args[k] = v
			}
			c.ActionRequests[i] = ActionRequest{ID: r.ID, Name: r.Name, Arguments: args}
		}
	}
	return c
}

// CloneMessages deep-copies a transcript.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
