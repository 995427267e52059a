package openai

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	chatSvc "coinsage/internal/domain/services/chat"
)

// Stream issues one streaming completion call and forwards text deltas
// from the server-sent event stream.
func (c *Client) Stream(ctx context.Context, req *chatSvc.SendRequest) (<-chan chatSvc.StreamEvent, error) {
	payload, err := c.buildPayload(req, true)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, classifyStatus(resp.StatusCode, body)
	}

	eventChan := make(chan chatSvc.StreamEvent, 10)

	go func() {
		defer close(eventChan)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				eventChan <- chatSvc.StreamEvent{Done: true}
				return
			}

			text := gjson.Get(data, "choices.0.delta.content").String()
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

		if err := scanner.Err(); err != nil {
			eventChan <- chatSvc.StreamEvent{Err: fmt.Errorf("stream read failed: %w", err)}
			return
		}
		// The server closed the stream without a [DONE] marker.
		eventChan <- chatSvc.StreamEvent{Err: fmt.Errorf("stream ended unexpectedly")}
	}()

	return eventChan, nil
}
