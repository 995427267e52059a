package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	chatSvc "coinsage/internal/domain/services/chat"
)

// Stream performs one streaming message call. Text deltas are forwarded
// as they arrive; one terminal event (Done or Err) closes the stream.
func (p *Provider) Stream(ctx context.Context, req *chatSvc.SendRequest) (<-chan chatSvc.StreamEvent, error) {
	params, err := buildParams(p.model, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	eventChan := make(chan chatSvc.StreamEvent, 10) // Buffered to prevent blocking

	go func() {
		defer close(eventChan)

		stream := p.client.Messages.NewStreaming(ctx, *params)

		// Accumulate so stream-level protocol errors surface via Err.
		message := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()

			if err := message.Accumulate(event); err != nil {
				eventChan <- chatSvc.StreamEvent{
					Err: fmt.Errorf("failed to accumulate message: %w", err),
				}
				return
			}

			text := extractTextDelta(event)
			if text == "" {
				continue
			}

			select {
			case <-ctx.Done():
				eventChan <- chatSvc.StreamEvent{Err: ctx.Err()}
				return
			case eventChan <- chatSvc.StreamEvent{Text: text}:
			}
		}

		if err := stream.Err(); err != nil {
			eventChan <- chatSvc.StreamEvent{Err: classifyError(err)}
			return
		}

		eventChan <- chatSvc.StreamEvent{Done: true}
	}()

	return eventChan, nil
}

// extractTextDelta pulls the incremental text out of a streaming event.
// Only text deltas matter on the streaming path; tool use is not engaged.
func extractTextDelta(event anthropic.MessageStreamEventUnion) string {
	switch e := event.AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		if e.Delta.Type == "text_delta" {
			return e.Delta.Text
		}
	}
	return ""
}
