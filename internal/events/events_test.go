package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/reconcile"
	"github.com/agentstation/specimap/pkg/specimen"
)

func TestEncode(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("NCT", 11*3600))
	out := reconcile.Outcome{
		Kind: reconcile.KindUpdated,
		ID:   "3f2b6a9e-4c1d-4e8a-9b7f-2d5c8e1a0b64",
		Key:  specimen.NaturalKey{ScientificName: "Agathis montana", InstitutionCode: "MNHN", PhysicalSpecimenID: "P00012"},
		Changes: []reconcile.Change{
			{Field: "country", Type: reconcile.ChangeTypeAdd, NewValue: "New Caledonia"},
		},
	}

	rec, err := Encode(NewEvent(out, at))
	require.NoError(t, err)
	assert.Equal(t, out.ID, string(rec.Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, "updated", got["kind"])
	assert.Equal(t, "2026-03-01T01:00:00Z", got["occurred_at"])
	assert.Len(t, got["changes"], 1)
}

func TestNewKafkaRequiresBrokers(t *testing.T) {
	_, err := NewKafka(" , ", "")
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewKafka(t *testing.T) {
	k, err := NewKafka("127.0.0.1:9092", "")
	require.NoError(t, err)
	defer k.Close()
	assert.Equal(t, DefaultTopic, k.Topic())
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), reconcile.Outcome{}))
}
