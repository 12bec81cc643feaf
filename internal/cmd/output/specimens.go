package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/agentstation/specimap/pkg/completeness"
	"github.com/agentstation/specimap/pkg/dispatch"
	"github.com/agentstation/specimap/pkg/region"
)

// Report is the machine-readable result of a batch run.
type Report struct {
	Summary dispatch.Summary      `json:"summary" yaml:"summary"`
	Files   []dispatch.FileResult `json:"files" yaml:"files"`
}

// NewReport tallies files into a report.
func NewReport(files []dispatch.FileResult) Report {
	return Report{Summary: dispatch.SummarizeFiles(files), Files: files}
}

// WriteReport renders a batch report. Tables show one row per record
// followed by the tallies; JSON and YAML carry the full report.
func WriteReport(w io.Writer, format Format, report Report) error {
	formatter := NewFormatter(format)
	if !format.IsTable() {
		return formatter.Format(w, report)
	}
	return formatter.Format(w, []Data{
		ResultsToTableData(report.Files, format == FormatWide),
		SummaryToTableData(report.Summary),
	})
}

// ResultsToTableData converts file results to one row per record. Aborted
// files add a row of their own.
func ResultsToTableData(files []dispatch.FileResult, wide bool) Data {
	headers := []string{"Source", "Outcome", "ID", "Changes"}
	if wide {
		headers = append(headers, "Natural Key", "Error")
	}

	var rows [][]string
	for _, f := range files {
		for _, r := range f.Results {
			outcome := r.Outcome.String()
			if r.Failed() {
				outcome = "failed"
			}
			row := []string{r.Source, outcome, r.Outcome.ID, strconv.Itoa(len(r.Outcome.Changes))}
			if wide {
				key := ""
				if r.Outcome.Key.ScientificName != "" {
					key = r.Outcome.Key.String()
				}
				row = append(row, key, r.Error)
			}
			rows = append(rows, row)
		}
		if f.Err != nil {
			row := []string{f.Path, "file-failed", "", ""}
			if wide {
				row = append(row, "", f.Error)
			}
			rows = append(rows, row)
		}
	}

	align := []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight}
	if wide {
		align = append(align, AlignLeft, AlignLeft)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// SummaryToTableData converts batch tallies to a two-column table.
func SummaryToTableData(s dispatch.Summary) Data {
	rows := [][]string{
		{"Total", strconv.Itoa(s.Total)},
		{"Created", strconv.Itoa(s.Created)},
		{"Updated", strconv.Itoa(s.Updated)},
		{"Skipped", strconv.Itoa(s.Skipped)},
		{"Rejected", strconv.Itoa(s.Rejected)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Timed Out", strconv.Itoa(s.TimedOut)},
	}
	if s.FileFails > 0 {
		rows = append(rows, []string{"File Failures", strconv.Itoa(s.FileFails)})
	}
	return Data{
		Headers:         []string{"Outcome", "Count"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// Resolution is a region lookup result.
type Resolution struct {
	InstitutionID   string `json:"institution_id,omitempty" yaml:"institution_id,omitempty"`
	InstitutionCode string `json:"institution_code,omitempty" yaml:"institution_code,omitempty"`
	CollectionCode  string `json:"collection_code,omitempty" yaml:"collection_code,omitempty"`
	Status          string `json:"status" yaml:"status"`
	Region          string `json:"region,omitempty" yaml:"region,omitempty"`
	Strategy        string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
}

// NewResolution pairs a query with its resolution.
func NewResolution(q region.Query, res region.Resolution) Resolution {
	return Resolution{
		InstitutionID:   q.InstitutionID,
		InstitutionCode: q.InstitutionCode,
		CollectionCode:  q.CollectionCode,
		Status:          res.Status.String(),
		Region:          res.Region,
		Strategy:        string(res.Strategy),
	}
}

// Score is the completeness level of one record.
type Score struct {
	Source string `json:"source" yaml:"source"`
	Key    string `json:"key" yaml:"key"`
	Level  int    `json:"level" yaml:"level"`
}

// NewScore builds a Score.
func NewScore(source, key string, level completeness.Level) Score {
	return Score{Source: source, Key: key, Level: int(level)}
}

// ScoresToTableData converts scores with a level histogram footer row.
func ScoresToTableData(scores []Score) Data {
	var counts [4]int
	rows := make([][]string, 0, len(scores)+1)
	for _, s := range scores {
		rows = append(rows, []string{s.Source, s.Key, strconv.Itoa(s.Level)})
		if s.Level >= 0 && s.Level < len(counts) {
			counts[s.Level]++
		}
	}
	rows = append(rows, []string{"", "levels 0/1/2/3",
		fmt.Sprintf("%d/%d/%d/%d", counts[0], counts[1], counts[2], counts[3])})
	return Data{
		Headers:         []string{"Source", "Natural Key", "MIDS"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight},
	}
}
