package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/internal/cmd/output"
	"github.com/agentstation/specimap/internal/config"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/reconcile"
)

const records = `{"scientificName":"Agathis montana de Laub.","institutionCode":"MNHN","physicalSpecimenID":"P00012","catalogNumber":"P00012","countryCode":"NC"}
{"scientificName":"Araucaria columnaris","institutionCode":"MNHN","physicalSpecimenID":"P00013"}
{"scientificName":"Amborella trichopoda"}
`

// newTestApp points every source at a server that knows nothing, so
// enrichment only adds what the offline country table provides.
func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	ts := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)

	engine := config.Default()
	engine.Sources.GBIF = ts.URL
	engine.Sources.Catalogue = ts.URL
	engine.Sources.Wikidata = ts.URL
	engine.Sources.Countries = ts.URL
	engine.Sources.CountryOffline = true
	engine.Sources.GeoIP = ts.URL
	engine.Repository.Path = filepath.Join(t.TempDir(), "specimap.db")
	engine.Batch.Parallelism = 2

	var out bytes.Buffer
	a, err := New("test", "abc123", "today", "go test",
		WithConfig(&Config{Engine: engine, LogFormat: "json"}),
		WithLogger(logging.NewNopLogger()),
		WithOutput(&out),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a, &out
}

func writeRecords(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(records), 0o600))
	return path
}

func runProcess(t *testing.T, a *App, out *bytes.Buffer, args ...string) output.Report {
	t.Helper()
	out.Reset()
	require.NoError(t, a.Execute(context.Background(), append([]string{"process", "-o", "json"}, args...)))
	require.NoError(t, a.Shutdown(context.Background()))

	var report output.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	return report
}

func TestProcessConverges(t *testing.T) {
	a, out := newTestApp(t)
	path := writeRecords(t)

	first := runProcess(t, a, out, path)
	assert.Equal(t, 3, first.Summary.Total)
	assert.Equal(t, 2, first.Summary.Created)
	assert.Equal(t, 1, first.Summary.Rejected)

	second := runProcess(t, a, out, path)
	assert.Equal(t, 0, second.Summary.Created)
	assert.Equal(t, 0, second.Summary.Updated)
	assert.Equal(t, 2, second.Summary.Skipped)
	for _, r := range second.Files[0].Results {
		if r.Outcome.Kind == reconcile.KindSkipped {
			assert.Equal(t, reconcile.ReasonNoOp, r.Outcome.Reason)
		}
	}
}

func TestProcessDryRun(t *testing.T) {
	a, out := newTestApp(t)
	path := writeRecords(t)

	report := runProcess(t, a, out, "--dry-run", "--no-enrich", path)
	assert.Equal(t, 2, report.Summary.Created)

	// nothing was written, so the records are still new
	report = runProcess(t, a, out, "--no-enrich", path)
	assert.Equal(t, 2, report.Summary.Created)
}

func TestProcessAdmission(t *testing.T) {
	a, out := newTestApp(t)
	path := writeRecords(t)

	report := runProcess(t, a, out, "--min-level", "1", "--no-enrich", path)
	assert.Equal(t, 1, report.Summary.Created, "only the record with a catalog number reaches level 1")
	assert.Equal(t, 2, report.Summary.Rejected)
}

func TestProcessMissingFile(t *testing.T) {
	a, out := newTestApp(t)
	report := runProcess(t, a, out, filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Equal(t, 1, report.Summary.FileFails)
	assert.NotEmpty(t, report.Files[0].Error)

	out.Reset()
	err := a.Execute(context.Background(), []string{"process", "--fail-on-error", filepath.Join(t.TempDir(), "absent.jsonl")})
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	a, out := newTestApp(t)
	path := writeRecords(t)

	require.NoError(t, a.Execute(context.Background(), []string{"score", "-o", "json", path}))
	var scores []output.Score
	require.NoError(t, json.Unmarshal(out.Bytes(), &scores))
	require.Len(t, scores, 3)
	assert.Equal(t, 1, scores[0].Level)
	assert.Equal(t, 0, scores[1].Level)
	assert.Equal(t, "Agathis montana de Laub.|MNHN|P00012", scores[0].Key)
	assert.Empty(t, scores[2].Key)
}

func TestResolveRegionRequiresInput(t *testing.T) {
	a, _ := newTestApp(t)
	err := a.Execute(context.Background(), []string{"resolve-region"})
	assert.Error(t, err)
}

func TestResolveRegionUnresolved(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Execute(context.Background(), []string{"resolve-region", "-o", "json", "--institution-code", "ZZZ"}))

	var res output.Resolution
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "unresolved", res.Status)
	assert.Equal(t, "ZZZ", res.InstitutionCode)
}

func TestInvalidFormat(t *testing.T) {
	a, _ := newTestApp(t)
	err := a.Execute(context.Background(), []string{"version", "-o", "csv"})
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Execute(context.Background(), []string{"version", "-v"}))
	assert.Contains(t, out.String(), "specimap test")
	assert.Contains(t, out.String(), "commit:     abc123")
}
