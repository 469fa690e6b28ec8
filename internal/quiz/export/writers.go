package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/gokatarajesh/spanish-quiz/internal/quiz"
)

var header = []string{
	"kind", "session_id", "position", "question_id", "prompt", "choice", "correct_answer",
	"is_correct", "time_taken_ms", "hint_used", "points", "accuracy", "max_streak",
}

const sheetName = "Results"

// Write encodes s to w in the given format.
func (e *Exporter) Write(w io.Writer, format Format, s quiz.Session) error {
	switch format {
	case FormatCSV:
		return e.WriteCSV(w, s)
	case FormatJSON:
		return e.WriteJSON(w, s)
	case FormatXLSX:
		return e.WriteXLSX(w, s)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// WriteCSV writes a header line and one line per record.
func (e *Exporter) WriteCSV(w io.Writer, s quiz.Session) error {
	records, err := e.Records(s)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.csvFields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the records as an indented JSON array.
func (e *Exporter) WriteJSON(w io.Writer, s quiz.Session) error {
	records, err := e.Records(s)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteXLSX writes a single-sheet workbook.
func (e *Exporter) WriteXLSX(w io.Writer, s quiz.Session) error {
	records, err := e.Records(s)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	for r, rec := range records {
		for c, v := range rec.values() {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}

// values returns the typed cells in header order. Fields that do not apply to
// the row kind are left empty.
func (r Record) values() []any {
	if r.Kind == KindSummary {
		return []any{
			r.Kind, r.SessionID, "", "", "", "", "",
			"", r.TimeTakenMs, r.HintUsed, r.Points, r.Accuracy, r.MaxStreak,
		}
	}
	return []any{
		r.Kind, r.SessionID, r.Position, r.QuestionID, r.Prompt, r.Choice, r.CorrectAnswer,
		r.IsCorrect, r.TimeTakenMs, r.HintUsed, r.Points, "", "",
	}
}

func (r Record) csvFields() []string {
	vals := r.values()
	out := make([]string, len(vals))
	for i, v := range vals {
		switch t := v.(type) {
		case string:
			out[i] = t
		case int:
			out[i] = strconv.Itoa(t)
		case int64:
			out[i] = strconv.FormatInt(t, 10)
		case bool:
			out[i] = strconv.FormatBool(t)
		case float64:
			out[i] = strconv.FormatFloat(t, 'f', 4, 64)
		}
	}
	return out
}
