package model

import (
	"fmt"
	"strconv"
)

// ExportHeader is the column order of the submissions CSV export.
var ExportHeader = []string{"Name", "Email", "Question", "Answer", "Score", "Max", "Feedback", "Submitted At"}

// ExportRecord renders one CSV row for a joined submission. Image answers
// are referenced by filename rather than inlined.
func (v SubmissionView) ExportRecord() []string {
	answer := v.AnswerText
	if v.AnswerType == AnswerImage {
		name := v.AnswerImageName
		if name == "" {
			name = "uploaded"
		}
		answer = fmt.Sprintf("[image: %s]", name)
	}

	score := ""
	if v.Score != nil {
		score = strconv.FormatFloat(*v.Score, 'f', 1, 64)
	}

	return []string{
		v.StudentName,
		v.StudentEmail,
		v.QuestionText,
		answer,
		score,
		strconv.Itoa(v.MaxMarks),
		v.Feedback,
		v.SubmittedAt.Format("2006-01-02 15:04:05"),
	}
}
