package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/hive/pkg/models"
)

const intentSystemPrompt = `You classify operator commands for a task orchestrator.

The known actions are:
- create_task: queue a piece of work described by the operator
- analyze_code: inspect code at a path
- run_tests: execute tests for a target
- generate_tests: write tests for a target
- improve_code: optimize or refactor a target
- status: report orchestrator status
- help: list available commands
- unknown: none of the above

Respond with ONLY a JSON object, no prose:
{"action": "<one of the actions>", "target": "<extracted target or empty>", "confidence": <0.0-1.0>}

Use "unknown" with confidence 0 when the command does not clearly map to an action.`

// intentReply is the JSON shape the model is instructed to produce.
type intentReply struct {
	Action     string  `json:"action"`
	Target     string  `json:"target"`
	Confidence float64 `json:"confidence"`
}

// ParseIntent asks the model to classify a command the rule table could not.
// The result is advisory; the caller applies its own confidence threshold.
func (c *Client) ParseIntent(ctx context.Context, text string) (*models.Intent, error) {
	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: intentSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("intent inference: %w", err)
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	reply, err := decodeReply(extractText(resp))
	if err != nil {
		return nil, err
	}

	intent := &models.Intent{
		RawText:    text,
		Action:     reply.Action,
		Entities:   map[string]string{},
		Confidence: reply.Confidence,
	}
	if reply.Target != "" {
		intent.Entities["target"] = reply.Target
	}
	return intent, nil
}

// decodeReply parses the model's JSON answer, tolerating surrounding prose or
// markdown fences by extracting the first balanced object.
func decodeReply(text string) (*intentReply, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("intent inference: no JSON object in reply")
	}

	var reply intentReply
	if err := json.Unmarshal([]byte(text[start:end+1]), &reply); err != nil {
		return nil, fmt.Errorf("intent inference: decode reply: %w", err)
	}
	if reply.Action == "" {
		reply.Action = models.ActionUnknown
	}
	if reply.Confidence < 0 {
		reply.Confidence = 0
	}
	if reply.Confidence > 1 {
		reply.Confidence = 1
	}
	return &reply, nil
}

func extractText(resp *anthropic.Message) string {
	var result string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result += variant.Text
		}
	}
	return strings.TrimSpace(result)
}
