package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/joseph-ayodele/idcard-reader/constants"
)

// MarkdownWriter outputs reports as GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

func (w *MarkdownWriter) Write(rep *BatchReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("ID Card Batch Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Images", strconv.Itoa(rep.Total)},
			{"Complete", strconv.Itoa(rep.Count(constants.DocumentStatusComplete))},
			{"Incomplete", strconv.Itoa(rep.Count(constants.DocumentStatusIncomplete))},
			{"Empty", strconv.Itoa(rep.Count(constants.DocumentStatusEmpty))},
			{"Failed", strconv.Itoa(rep.Count(constants.DocumentStatusFailed))},
		},
	})
	md.PlainText("")

	switch failed := rep.Count(constants.DocumentStatusFailed); {
	case failed > 0:
		md.Warningf("%d of %d image(s) could not be processed.", failed, rep.Total)
	case rep.Count(constants.DocumentStatusComplete) == rep.Total:
		md.Tip("Every image yielded all mandatory fields.")
	default:
		md.Note("Some images are missing mandatory fields; see the warnings column.")
	}
	md.PlainText("")

	w.writeDocuments(md, rep)
	w.writeFailures(md, rep)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeDocuments(md *markdown.Markdown, rep *BatchReport) {
	md.H2("Documents")
	md.PlainText("")

	rows := make([][]string, 0, len(rep.Items))
	for _, it := range rep.Items {
		if it.Error != "" {
			continue
		}
		rows = append(rows, []string{
			cell(it.ID),
			string(it.Status),
			string(it.Engine),
			cell(it.Fields[constants.FieldIDNumber]),
			cell(it.Fields[constants.FieldFullName]),
			cell(it.Fields[constants.FieldDateOfBirth]),
			cell(strings.Join(it.Warnings, "; ")),
		})
	}
	if len(rows) == 0 {
		md.PlainText("No documents extracted.")
		md.PlainText("")
		return
	}
	md.Table(markdown.TableSet{
		Header: []string{"Image", "Status", "Engine", "ID Number", "Full Name", "Date of Birth", "Warnings"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, rep *BatchReport) {
	var lines []string
	for _, it := range rep.Items {
		if it.Error != "" {
			lines = append(lines, "`"+it.ID+"` ("+string(it.Kind)+"): "+it.Error)
		}
	}
	if len(lines) == 0 {
		return
	}
	md.H2("Failures")
	md.PlainText("")
	md.BulletList(lines...)
	md.PlainText("")
}

// cell keeps a value from breaking the table layout.
func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
