package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"genosim/internal/model"
	"genosim/internal/sim"
)

// CSVRecorder appends the cycle's diversity summaries to a CSV stream. The header is
// written with the first batch only.
type CSVRecorder struct {
	w             io.Writer
	headerWritten bool
}

func NewCSVRecorder(w io.Writer) *CSVRecorder {
	return &CSVRecorder{w: w}
}

func (*CSVRecorder) Name() string {
	return "csv_recorder"
}

func (r *CSVRecorder) Change(_ context.Context, state *sim.State) error {
	summaries, err := Summarize(state)
	if err != nil {
		return err
	}
	return r.Write(summaries)
}

func (r *CSVRecorder) Write(summaries []model.CycleSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	if !r.headerWritten {
		if err := gocsv.Marshal(summaries, r.w); err != nil {
			return fmt.Errorf("writing summaries: %w", err)
		}
		r.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(summaries, r.w); err != nil {
		return fmt.Errorf("writing summaries: %w", err)
	}
	return nil
}

// ReadSummaries parses a stream written by CSVRecorder.
func ReadSummaries(r io.Reader) ([]model.CycleSummary, error) {
	var summaries []model.CycleSummary
	if err := gocsv.Unmarshal(r, &summaries); err != nil {
		return nil, fmt.Errorf("reading summaries: %w", err)
	}
	return summaries, nil
}
