// Package events publishes reconciliation writes to Kafka so that
// downstream indexers can follow the repository.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/reconcile"
	"github.com/agentstation/specimap/pkg/specimen"
)

// DefaultTopic receives specimen events.
const DefaultTopic = "specimap.specimens"

// Event is the message value.
type Event struct {
	Kind       reconcile.Kind      `json:"kind"`
	ID         string              `json:"id"`
	Key        specimen.NaturalKey `json:"key"`
	Changes    []reconcile.Change  `json:"changes,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// NewEvent builds the event for a write outcome.
func NewEvent(out reconcile.Outcome, at time.Time) Event {
	return Event{
		Kind:       out.Kind,
		ID:         out.ID,
		Key:        out.Key,
		Changes:    out.Changes,
		OccurredAt: at.UTC(),
	}
}

// Encode renders the Kafka record for an event, keyed by object id so
// that events for one object stay ordered within a partition.
func Encode(e Event) (*kgo.Record, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{Key: []byte(e.ID), Value: value}, nil
}

// Kafka implements reconcile.Publisher.
type Kafka struct {
	client *kgo.Client
	topic  string
	now    func() time.Time
}

// NewKafka creates a producer. brokers is a comma-separated seed list.
func NewKafka(brokers, topic string) (*Kafka, error) {
	var seeds []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			seeds = append(seeds, b)
		}
	}
	if len(seeds) == 0 {
		return nil, &errors.ConfigError{Component: "events", Message: "no Kafka brokers configured"}
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, &errors.ConfigError{Component: "events", Message: "creating Kafka client", Err: err}
	}
	return &Kafka{client: client, topic: topic, now: time.Now}, nil
}

// Topic returns the topic events are produced to.
func (k *Kafka) Topic() string {
	return k.topic
}

// Publish implements reconcile.Publisher. It waits for the broker's ack.
func (k *Kafka) Publish(ctx context.Context, out reconcile.Outcome) error {
	rec, err := Encode(NewEvent(out, k.now()))
	if err != nil {
		return err
	}
	if err := k.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return errors.WrapAPI("kafka", 0, err)
	}
	logging.FromContext(ctx).Debug().Str("topic", k.topic).Str("id", out.ID).Msg("Published specimen event")
	return nil
}

// Close flushes and closes the producer.
func (k *Kafka) Close() {
	k.client.Close()
}

// Nop discards events.
type Nop struct{}

// Publish implements reconcile.Publisher.
func (Nop) Publish(context.Context, reconcile.Outcome) error { return nil }

var (
	_ reconcile.Publisher = (*Kafka)(nil)
	_ reconcile.Publisher = Nop{}
)
