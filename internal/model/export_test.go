package model

import (
	"testing"
	"time"
)

func TestExportRecord(t *testing.T) {
	submittedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	score := 3.5

	t.Run("text answer with score", func(t *testing.T) {
		v := SubmissionView{
			Submission: Submission{
				AnswerText:  "lightweight threads",
				AnswerType:  AnswerText,
				Score:       &score,
				SubmittedAt: submittedAt,
				Feedback:    "good",
			},
			QuestionText: "Explain goroutines.",
			MaxMarks:     5,
			StudentName:  "Alice",
			StudentEmail: "alice@example.com",
		}
		got := v.ExportRecord()
		want := []string{
			"Alice", "alice@example.com", "Explain goroutines.",
			"lightweight threads", "3.5", "5", "good", "2026-03-14 09:26:53",
		}
		if len(got) != len(ExportHeader) {
			t.Fatalf("record has %d fields, header has %d", len(got), len(ExportHeader))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("field %d (%s) = %q, want %q", i, ExportHeader[i], got[i], want[i])
			}
		}
	})

	t.Run("image answer without score", func(t *testing.T) {
		v := SubmissionView{
			Submission: Submission{
				AnswerImageName: "work.png",
				AnswerType:      AnswerImage,
				SubmittedAt:     submittedAt,
			},
			QuestionText: "Derive the formula.",
			MaxMarks:     4,
			StudentName:  "Bob",
			StudentEmail: "bob@example.com",
		}
		got := v.ExportRecord()
		if got[3] != "[image: work.png]" {
			t.Errorf("expected image placeholder, got %q", got[3])
		}
		if got[4] != "" {
			t.Errorf("expected empty score for unevaluated answer, got %q", got[4])
		}
	})

	t.Run("image answer without filename", func(t *testing.T) {
		v := SubmissionView{
			Submission: Submission{AnswerType: AnswerImage, SubmittedAt: submittedAt},
		}
		if got := v.ExportRecord()[3]; got != "[image: uploaded]" {
			t.Errorf("expected fallback placeholder, got %q", got)
		}
	})
}

func TestRankingRowPercent(t *testing.T) {
	score := 9.0
	tests := []struct {
		name string
		row  RankingRow
		want float64
	}{
		{"evaluated", RankingRow{TotalScore: &score, TotalMax: 12}, 75},
		{"nothing evaluated", RankingRow{TotalMax: 12}, 0},
		{"zero max", RankingRow{TotalScore: &score}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.Percent(); got != tt.want {
				t.Errorf("Percent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdminEmail(t *testing.T) {
	cfg := PortalConfig{AdminEmails: []string{"boss@example.com", "ops@example.com"}}
	if !cfg.AdminEmail("boss@example.com") {
		t.Error("expected allowlisted email to match")
	}
	if cfg.AdminEmail("student@example.com") {
		t.Error("expected non-allowlisted email to not match")
	}
	if (PortalConfig{}).AdminEmail("boss@example.com") {
		t.Error("expected empty allowlist to match nothing")
	}
}
