package evaluator

import (
	"context"
	"strings"
	"testing"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		maxMarks     int
		wantScore    float64
		wantFeedback string
	}{
		{
			"clean json",
			`{"score": 3.5, "feedback": "Good answer."}`,
			4, 3.5, "Good answer.",
		},
		{
			"json wrapped in prose",
			"Here is my evaluation:\n```json\n{\"score\": 2, \"feedback\": \"Partial.\"}\n```\nDone.",
			4, 2, "Partial.",
		},
		{
			"score above max is clamped",
			`{"score": 99, "feedback": "Excellent."}`,
			4, 4, "Excellent.",
		},
		{
			"negative score is clamped",
			`{"score": -1, "feedback": "Poor."}`,
			4, 0, "Poor.",
		},
		{
			"missing feedback gets default",
			`{"score": 1}`,
			4, 1, "No feedback provided.",
		},
		{
			"no json at all",
			"I cannot evaluate this answer.",
			4, 0, "Could not parse evaluation response.",
		},
		{
			"malformed json",
			`{"score": "three", "feedback": }`,
			4, 0, "Could not parse evaluation response.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseResult(tt.raw, tt.maxMarks)
			if got.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", got.Score, tt.wantScore)
			}
			if got.Feedback != tt.wantFeedback {
				t.Errorf("feedback = %q, want %q", got.Feedback, tt.wantFeedback)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"leading text", `noise {"a": 1} trailing`, `{"a": 1}`, true},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`, true},
		{"brace inside string", `{"feedback": "use {} sparingly"}`, `{"feedback": "use {} sparingly"}`, true},
		{"escaped quote inside string", `{"feedback": "she said \"hi\""}`, `{"feedback": "she said \"hi\""}`, true},
		{"unterminated", `{"a": 1`, "", false},
		{"no object", "plain text", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSON(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("extractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSniffImageMime(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}, "image/png"},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg"},
		{"gif", []byte("GIF89a"), "image/gif"},
		{"webp", []byte("RIFFxxxxWEBP"), "image/webp"},
		{"unknown defaults to jpeg", []byte("something else"), "image/jpeg"},
		{"too short defaults to jpeg", []byte{0x89}, "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniffImageMime(tt.data); got != tt.want {
				t.Errorf("sniffImageMime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisabledClient(t *testing.T) {
	c := New("", "", "")
	if c.Enabled() {
		t.Fatal("expected client without API key to be disabled")
	}

	res := c.Evaluate(context.Background(), "Q", "A", 4)
	if res.Score != 0 || !strings.Contains(res.Feedback, "not configured") {
		t.Errorf("unexpected disabled result: %+v", res)
	}

	res = c.EvaluateImage(context.Background(), "Q", []byte{0xff, 0xd8}, 4)
	if res.Score != 0 || !strings.Contains(res.Feedback, "not configured") {
		t.Errorf("unexpected disabled image result: %+v", res)
	}

	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected Ping to fail on a disabled client")
	}
}

func TestNewDefaultsModel(t *testing.T) {
	c := New("", "key", "")
	if c.model != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, c.model)
	}
	if !c.Enabled() {
		t.Error("expected client with API key to be enabled")
	}
}
