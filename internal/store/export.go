package store

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/examportal/examportal/internal/model"
)

// WriteSessionCSV streams every submission of a session as CSV, one row
// per (student, question), ordered by student name then question.
func (s *Store) WriteSessionCSV(sessionID int64, w io.Writer) error {
	subs, err := s.SessionSubmissions(sessionID)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(model.ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, v := range subs {
		if err := cw.Write(v.ExportRecord()); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
