// Package prompts builds the grading prompt sent to the evaluation model.
package prompts

import (
	"bytes"
	"embed"
	"strings"
	"text/template"
	"unicode/utf8"
)

//go:embed eval.txt
var promptFS embed.FS

var evalTemplate = template.Must(template.ParseFS(promptFS, "eval.txt"))

const maxAnswerRunes = 10000

// Data holds template parameters for an evaluation prompt.
type Data struct {
	QuestionText string
	MaxMarks     int
	Answer       string
	ImageAnswer  bool
}

// Build renders the evaluation prompt for a question/answer pair. For
// image answers the literal answer text is replaced by a
// transcribe-and-grade instruction.
func Build(d Data) (string, error) {
	if !d.ImageAnswer {
		d.Answer = sanitizeAnswer(d.Answer)
	}
	var buf bytes.Buffer
	if err := evalTemplate.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "[No answer provided]"
	}
	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}
	return answer
}
