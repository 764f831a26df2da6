// Package evaluator scores descriptive answers through an external
// generative model. Failures never escape as errors: every call returns a
// well-formed Result, degraded to score zero with an explanatory feedback
// string when the provider misbehaves.
package evaluator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/examportal/examportal/internal/evaluator/prompts"
)

// DefaultBaseURL is the OpenAI-compatible endpoint of the Gemini API.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// DefaultModel is the evaluation model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Result holds the outcome of one evaluation call.
type Result struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	enabled bool
}

// New creates an evaluation client. An empty apiKey yields a disabled
// client whose calls report that evaluation is not configured.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		enabled: apiKey != "",
	}
}

// Enabled reports whether an API key was configured.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Ping verifies the configured endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if !c.enabled {
		return fmt.Errorf("evaluation API key not configured")
	}
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Evaluate scores a typed answer against a question. The returned score
// is always within [0, maxMarks].
func (c *Client) Evaluate(ctx context.Context, questionText, answer string, maxMarks int) Result {
	if !c.enabled {
		return Result{Score: 0, Feedback: "Evaluation is not configured."}
	}

	prompt, err := prompts.Build(prompts.Data{
		QuestionText: questionText,
		MaxMarks:     maxMarks,
		Answer:       answer,
	})
	if err != nil {
		return Result{Score: 0, Feedback: "Evaluation error: " + err.Error()}
	}

	raw, err := c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	if err != nil {
		slog.Error("evaluation call failed", "error", err)
		return Result{Score: 0, Feedback: "Evaluation error: " + err.Error()}
	}
	return parseResult(raw, maxMarks)
}

// EvaluateImage scores a handwritten answer supplied as image bytes. The
// image is inlined as a data URL alongside the prompt in a single call.
func (c *Client) EvaluateImage(ctx context.Context, questionText string, image []byte, maxMarks int) Result {
	if !c.enabled {
		return Result{Score: 0, Feedback: "Evaluation is not configured."}
	}

	prompt, err := prompts.Build(prompts.Data{
		QuestionText: questionText,
		MaxMarks:     maxMarks,
		ImageAnswer:  true,
	})
	if err != nil {
		return Result{Score: 0, Feedback: "Image evaluation error: " + err.Error()}
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		sniffImageMime(image), base64.StdEncoding.EncodeToString(image))

	raw, err := c.complete(ctx, []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
				},
			},
		},
	})
	if err != nil {
		slog.Error("image evaluation call failed", "error", err)
		return Result{Score: 0, Feedback: "Image evaluation error: " + err.Error()}
	}
	return parseResult(raw, maxMarks)
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("evaluation API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	raw := resp.Choices[0].Message.Content
	slog.Debug("evaluation response", "raw", raw)
	return raw, nil
}

// parseResult extracts the first JSON object from the model's reply and
// clamps the score into [0, maxMarks]. The model is an untrusted text
// source: anything unparsable degrades to a zero score.
func parseResult(raw string, maxMarks int) Result {
	obj, ok := extractJSON(raw)
	if !ok {
		return Result{Score: 0, Feedback: "Could not parse evaluation response."}
	}

	var parsed struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return Result{Score: 0, Feedback: "Could not parse evaluation response."}
	}

	score := parsed.Score
	if score < 0 {
		score = 0
	}
	if score > float64(maxMarks) {
		score = float64(maxMarks)
	}

	feedback := parsed.Feedback
	if feedback == "" {
		feedback = "No feedback provided."
	}
	return Result{Score: score, Feedback: feedback}
}

// extractJSON returns the first balanced brace-delimited substring of s.
func extractJSON(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if start == -1 {
			if ch == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// sniffImageMime detects the image type from its binary header. Unknown
// headers default to JPEG.
func sniffImageMime(image []byte) string {
	switch {
	case len(image) >= 4 && string(image[1:4]) == "PNG" && image[0] == 0x89:
		return "image/png"
	case len(image) >= 2 && image[0] == 0xff && image[1] == 0xd8:
		return "image/jpeg"
	case len(image) >= 4 && string(image[:4]) == "GIF8":
		return "image/gif"
	case len(image) >= 4 && string(image[:4]) == "RIFF":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
