package llm

import (
	"errors"
	"strings"
)

// Message is one conversation turn.
type Message struct {
	Role    string         `json:"role"`    // "system", "user", "assistant"
	Content []ContentBlock `json:"content"` // ordered content blocks
}

// ContentBlock is one piece of a message or stream chunk.
type ContentBlock struct {
	Type string `json:"type"` // "text", "thinking", "error"
	Text string `json:"text,omitempty"`
}

// StreamChunk is one incremental piece of a streamed response.
type StreamChunk struct {
	// ContentBlocks holds only the content added by this chunk.
	ContentBlocks []ContentBlock `json:"content_blocks,omitempty"`

	// IsFinal marks the last chunk of a successful stream.
	IsFinal bool `json:"is_final"`

	// FinishReason is set on the final chunk only.
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage may arrive on any chunk; the final chunk always carries the total.
	Usage *LLMUsage `json:"usage,omitempty"`

	// Err is the underlying error of an error chunk, if any.
	Err error `json:"-"`

	// Fatal marks an error chunk that ends the stream without a usable answer.
	Fatal bool `json:"fatal,omitempty"`
}

// NewTextMessage creates a single-block text message.
func NewTextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentBlock{NewTextBlock(text)},
	}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(text string) Message {
	return NewTextMessage(RoleSystem, text)
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) Message {
	return NewTextMessage(RoleUser, text)
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(text string) Message {
	return NewTextMessage(RoleAssistant, text)
}

// GetTextContent concatenates all text blocks, thinking excluded.
func (m *Message) GetTextContent() string {
	var sb strings.Builder
	for _, block := range m.Content {
		if block.Type == BlockTypeText {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// GetThinkingContent concatenates all thinking blocks.
func (m *Message) GetThinkingContent() string {
	var sb strings.Builder
	for _, block := range m.Content {
		if block.Type == BlockTypeThinking {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// NewTextBlock creates a text block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// NewThinkingBlock creates a thinking block.
func NewThinkingBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeThinking, Text: text}
}

// NewTextChunk creates a text chunk.
func NewTextChunk(text string) StreamChunk {
	return StreamChunk{ContentBlocks: []ContentBlock{NewTextBlock(text)}}
}

// NewThinkingChunk creates a thinking chunk.
func NewThinkingChunk(text string) StreamChunk {
	return StreamChunk{ContentBlocks: []ContentBlock{NewThinkingBlock(text)}}
}

// NewErrorChunk creates an error chunk. A fatal chunk aborts collection;
// a non-fatal one is a warning (e.g. truncation) and the stream goes on.
func NewErrorChunk(msg string, err error, fatal bool) StreamChunk {
	if err == nil && fatal {
		err = errors.New(msg)
	}
	return StreamChunk{
		ContentBlocks: []ContentBlock{{Type: BlockTypeError, Text: msg}},
		Err:           err,
		Fatal:         fatal,
	}
}

// NewFinalChunk creates the final chunk with usage statistics.
func NewFinalChunk(reason string, usage *LLMUsage) StreamChunk {
	return StreamChunk{
		IsFinal:      true,
		FinishReason: reason,
		Usage:        usage,
	}
}
