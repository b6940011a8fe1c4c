package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	skafka "github.com/radieske/odds-tracker-poc/internal/shared/kafka"
	"github.com/radieske/odds-tracker-poc/pkg/contracts/events"
)

// KafkaPublisher emite os eventos de tracking pro pipeline de analytics.
// Publicação é best-effort: falha aqui nunca derruba a requisição.
type KafkaPublisher struct {
	TrackedWriter   *kafka.Writer
	UntrackedWriter *kafka.Writer
}

func NewKafkaPublisher(tracked, untracked *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{TrackedWriter: tracked, UntrackedWriter: untracked}
}

func (p *KafkaPublisher) PublishBetTracked(ctx context.Context, e events.BetTracked) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return skafka.WriteJSON(ctx, p.TrackedWriter, e.BetID, b)
}

func (p *KafkaPublisher) PublishBetUntracked(ctx context.Context, e events.BetUntracked) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return skafka.WriteJSON(ctx, p.UntrackedWriter, e.BetID, b)
}
