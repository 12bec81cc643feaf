// Package archive reads specimen rows from archive files. A row is either
// a flat object of Darwin Core terms or an object with "fields" and "raw"
// keys, the latter holding the row as the upstream archive delivered it.
//
// Supported formats, chosen by extension:
//
//	.jsonl, .ndjson  one JSON object per line
//	.json            a JSON array of objects
//	.yaml, .yml      a YAML sequence of objects
package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/specimen"
)

// maxLine bounds one JSON-lines row.
const maxLine = 4 << 20

// Reader implements dispatch.Reader.
type Reader struct {
	// Strict aborts the file on the first malformed row. Otherwise the row
	// is logged and skipped.
	Strict bool
}

// row is one decoded row and where it came from.
type row struct {
	line   int
	record *specimen.Record
	err    error
}

// Each calls fn for every row of the file in order. It stops at the first
// error fn returns.
func (a *Reader) Each(ctx context.Context, path string, fn func(line int, r *specimen.Record) error) error {
	format, err := Format(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	rows := make(chan row)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer close(rows)
		emit := func(r row) bool {
			select {
			case rows <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}
		switch format {
		case "jsonl":
			produceLines(f, emit)
		case "json":
			produceJSON(f, emit)
		default:
			produceYAML(f, emit)
		}
	}()

	logger := logging.FromContext(ctx)
	var skipped int
	for r := range rows {
		if r.err != nil {
			perr := &errors.ParseError{Format: format, File: path, Line: r.line, Message: r.err.Error(), Err: r.err}
			if a.Strict {
				return perr
			}
			skipped++
			logger.Warn().Err(r.err).Int("line", r.line).Msg("Skipping malformed archive row")
			continue
		}
		if err := fn(r.line, r.record); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Msg("Archive file had malformed rows")
	}
	return nil
}

// ReadAll returns every well-formed row of the file.
func (a *Reader) ReadAll(ctx context.Context, path string) ([]*specimen.Record, error) {
	var out []*specimen.Record
	err := a.Each(ctx, path, func(_ int, r *specimen.Record) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// Format names the format of path from its extension.
func Format(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return "jsonl", nil
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "", errors.NewValidationError("path", path, "unsupported archive format, want .jsonl, .ndjson, .json, .yaml or .yml")
}

func produceLines(f *os.File, emit func(row) bool) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(text, &obj); err != nil {
			if !emit(row{line: line, err: err}) {
				return
			}
			continue
		}
		if !emit(toRow(line, obj)) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		emit(row{line: line + 1, err: err})
	}
}

func produceJSON(f *os.File, emit func(row) bool) {
	dec := json.NewDecoder(f)
	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		emit(row{line: 1, err: err})
		return
	}
	for i, raw := range items {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			if !emit(row{line: i + 1, err: err}) {
				return
			}
			continue
		}
		if !emit(toRow(i+1, obj)) {
			return
		}
	}
}

func produceYAML(f *os.File, emit func(row) bool) {
	var items []any
	if err := yaml.NewDecoder(f).Decode(&items); err != nil {
		emit(row{line: 1, err: err})
		return
	}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			if !emit(row{line: i + 1, err: fmt.Errorf("row is a %T, not a mapping", item)}) {
				return
			}
			continue
		}
		if !emit(toRow(i+1, normalizeYAML(obj))) {
			return
		}
	}
}

func toRow(line int, obj map[string]any) row {
	return row{line: line, record: RecordFrom(obj)}
}

// RecordFrom splits a decoded row into fields and raw mirror.
func RecordFrom(obj map[string]any) *specimen.Record {
	fields, wrapped := obj["fields"].(map[string]any)
	for k := range obj {
		if k != "fields" && k != "raw" {
			wrapped = false
		}
	}
	if !wrapped {
		return specimen.New(specimen.Fields(obj), nil)
	}
	raw, _ := obj["raw"].(map[string]any)
	return specimen.New(specimen.Fields(fields), raw)
}

// normalizeYAML converts YAML scalars to the types JSON decoding yields so
// that records compare the same whatever file they came from.
func normalizeYAML(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case map[string]any:
		return normalizeYAML(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	}
	return v
}
