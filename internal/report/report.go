// Package report renders batch processing outcomes as Markdown or JSON.
package report

import (
	"io"
	"sort"
	"time"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/core"
)

// Item is one processed image in a batch report.
type Item struct {
	ID        string                     `json:"id"`
	Status    constants.DocumentStatus   `json:"status"`
	Engine    constants.EngineName       `json:"engine,omitempty"`
	Kind      constants.ErrorKind        `json:"error_kind,omitempty"`
	Error     string                     `json:"error,omitempty"`
	Fields    map[constants.Field]string `json:"fields,omitempty"`
	Warnings  []string                   `json:"warnings,omitempty"`
	ElapsedMS int64                      `json:"elapsed_ms"`
}

// BatchReport summarizes a batch. Items are sorted by ID.
type BatchReport struct {
	GeneratedAt time.Time                        `json:"generated_at"`
	Total       int                              `json:"total"`
	Counts      map[constants.DocumentStatus]int `json:"counts"`
	Items       []Item                           `json:"items"`
}

// Count returns the number of items with status s.
func (r *BatchReport) Count(s constants.DocumentStatus) int { return r.Counts[s] }

// Summarize builds a report from ProcessBatch output.
func Summarize(results map[string]core.Result, now time.Time) *BatchReport {
	rep := &BatchReport{
		GeneratedAt: now.UTC(),
		Total:       len(results),
		Counts:      make(map[constants.DocumentStatus]int),
		Items:       make([]Item, 0, len(results)),
	}
	for id, r := range results {
		it := Item{
			ID:        id,
			Status:    r.Status,
			Engine:    r.Engine,
			ElapsedMS: r.Elapsed.Milliseconds(),
		}
		if r.Err != nil {
			it.Kind = r.Kind
			it.Error = r.Err.Error()
			if it.Status == "" {
				it.Status = constants.DocumentStatusFailed
			}
		} else {
			it.Fields = r.Record.Fields()
			for _, w := range r.Report.Warnings {
				it.Warnings = append(it.Warnings, w.String())
			}
		}
		rep.Counts[it.Status]++
		rep.Items = append(rep.Items, it)
	}
	sort.Slice(rep.Items, func(i, j int) bool { return rep.Items[i].ID < rep.Items[j].ID })
	return rep
}

// Writer outputs a batch report.
type Writer interface {
	Write(rep *BatchReport) (int, error)
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
