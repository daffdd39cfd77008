package llm

import (
	"context"
	"strings"
)

// Completion is the fully drained result of one StreamChat call.
type Completion struct {
	Text         string
	Thinking     string
	FinishReason string
	Usage        *LLMUsage
	Warnings     []string
}

// Collect drains a StreamChat call into a Completion. A fatal error chunk
// or a cancelled context ends collection with an error.
func Collect(ctx context.Context, client LLMClient, messages []Message) (*Completion, error) {
	ch, err := client.StreamChat(ctx, messages)
	if err != nil {
		return nil, err
	}

	var text, thinking strings.Builder
	out := &Completion{}
	for {
		select {
		case <-ctx.Done():
			// drain so the producer goroutine can exit
			go func() {
				for range ch {
				}
			}()
			return nil, ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				out.Text = text.String()
				out.Thinking = thinking.String()
				return out, nil
			}
			for _, block := range chunk.ContentBlocks {
				switch block.Type {
				case BlockTypeText:
					text.WriteString(block.Text)
				case BlockTypeThinking:
					thinking.WriteString(block.Text)
				case BlockTypeError:
					if !chunk.Fatal {
						out.Warnings = append(out.Warnings, block.Text)
					}
				}
			}
			if chunk.Fatal {
				go func() {
					for range ch {
					}
				}()
				return nil, chunk.Err
			}
			if chunk.Usage != nil {
				out.Usage = chunk.Usage
			}
			if chunk.IsFinal {
				out.FinishReason = chunk.FinishReason
			}
		}
	}
}
