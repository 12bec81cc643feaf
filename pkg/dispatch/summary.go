package dispatch

import (
	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/reconcile"
)

// Summary tallies a batch.
type Summary struct {
	Total     int `json:"total" yaml:"total"`
	Created   int `json:"created" yaml:"created"`
	Updated   int `json:"updated" yaml:"updated"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Rejected  int `json:"rejected" yaml:"rejected"`
	Failed    int `json:"failed" yaml:"failed"`
	TimedOut  int `json:"timed_out" yaml:"timed_out"`
	FileFails int `json:"file_failures,omitempty" yaml:"file_failures,omitempty"`
}

// Add counts one result.
func (s *Summary) Add(r Result) {
	s.Total++
	if r.Err != nil {
		if errors.IsTimeout(r.Err) {
			s.TimedOut++
		} else {
			s.Failed++
		}
		return
	}
	switch r.Outcome.Kind {
	case reconcile.KindCreated:
		s.Created++
	case reconcile.KindUpdated:
		s.Updated++
	case reconcile.KindSkipped:
		s.Skipped++
	case reconcile.KindRejected:
		s.Rejected++
	}
}

// Summarize tallies record results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Add(r)
	}
	return s
}

// SummarizeFiles tallies file results, counting each aborted file once
// on top of the records it produced.
func SummarizeFiles(files []FileResult) Summary {
	var s Summary
	for _, f := range files {
		for _, r := range f.Results {
			s.Add(r)
		}
		if f.Err != nil {
			s.FileFails++
		}
	}
	return s
}
