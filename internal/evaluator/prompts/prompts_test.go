package prompts

import (
	"strings"
	"testing"
)

func TestBuildTextAnswer(t *testing.T) {
	prompt, err := Build(Data{
		QuestionText: "What is a goroutine?",
		MaxMarks:     5,
		Answer:       "A lightweight thread managed by the Go runtime.",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(prompt, "What is a goroutine?") {
		t.Error("prompt should contain the question text")
	}
	if !strings.Contains(prompt, "**Maximum Marks:** 5") {
		t.Error("prompt should contain the max marks")
	}
	if !strings.Contains(prompt, "A lightweight thread managed by the Go runtime.") {
		t.Error("prompt should contain the answer")
	}
	if strings.Contains(prompt, "handwritten") {
		t.Error("text prompt should not mention a handwritten answer")
	}
}

func TestBuildImageAnswer(t *testing.T) {
	prompt, err := Build(Data{
		QuestionText: "Derive the formula.",
		MaxMarks:     4,
		ImageAnswer:  true,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(prompt, "handwritten answer") {
		t.Error("image prompt should instruct reading the handwritten answer")
	}
	if strings.Contains(prompt, "[No answer provided]") {
		t.Error("image prompt should not substitute the empty-answer placeholder")
	}
}

func TestBuildEmptyAnswer(t *testing.T) {
	prompt, err := Build(Data{QuestionText: "Q", MaxMarks: 4, Answer: "   "})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(prompt, "[No answer provided]") {
		t.Error("blank answer should be replaced by the placeholder")
	}
}

func TestBuildTruncatesLongAnswer(t *testing.T) {
	long := strings.Repeat("a", maxAnswerRunes+500)
	prompt, err := Build(Data{QuestionText: "Q", MaxMarks: 4, Answer: long})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(prompt, "[Answer truncated due to length]") {
		t.Error("overlong answer should be truncated with a marker")
	}
	if strings.Contains(prompt, long) {
		t.Error("prompt should not contain the full overlong answer")
	}
}
