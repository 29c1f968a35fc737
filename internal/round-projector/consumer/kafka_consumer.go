package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/saltypredict/internal/round-projector/pubsub"
	"github.com/radieske/saltypredict/pkg/contracts/events"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type EventLog interface {
	Record(ctx context.Context, partition int, offset int64, e events.GameEvent) (bool, error)
}

type Projector interface {
	Apply(ctx context.Context, e events.GameEvent) error
}

type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Processor consome game_events do Kafka, registra no log e projeta no Redis
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log         *zap.Logger
	Reader      MessageReader
	DLQ         MessageWriter // opcional: mensagens que não decodificam
	Events      EventLog
	Projection  Projector
	Broadcaster Broadcaster // opcional

	OnConsumed  func()       // métricas (counter++)
	OnDuplicate func()       // mensagem reentregue
	OnProjected func(string) // métricas por tipo de evento
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.handle(ctx, m)
	}
}

func (p *Processor) handle(ctx context.Context, m kafka.Message) {
	var ev events.GameEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.Type == "" {
		p.Log.Warn("invalid message", zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m)
		return
	}

	// Log primeiro: reentregas não incrementam a projeção duas vezes
	fresh, err := p.Events.Record(ctx, m.Partition, m.Offset, ev)
	if err != nil {
		p.Log.Warn("db record failed", zap.Error(err))
		p.fail("db")
		return
	}
	if !fresh {
		if p.OnDuplicate != nil {
			p.OnDuplicate()
		}
		return
	}

	if err := p.Projection.Apply(ctx, ev); err != nil {
		p.Log.Warn("redis projection failed", zap.String("type", ev.Type), zap.Int64("epoch", ev.Epoch), zap.Error(err))
		p.fail("cache")
		return
	}
	if p.OnProjected != nil {
		p.OnProjected(ev.Type)
	}

	p.broadcast(ctx, ev)
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message) {
	if p.DLQ == nil {
		return
	}
	if err := p.DLQ.WriteMessages(ctx, kafka.Message{Key: m.Key, Value: m.Value}); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.fail("dlq")
	}
}

func (p *Processor) broadcast(ctx context.Context, ev events.GameEvent) {
	if p.Broadcaster == nil {
		return
	}
	b, _ := json.Marshal(pubsub.RoundUpdate{Epoch: ev.Epoch, Type: ev.Type, Event: ev})

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := p.Broadcaster.Publish(ctx, pubsub.ChannelRoundUpdates, b); err != nil {
		p.Log.Warn("round update publish failed", zap.Error(err))
		p.fail("broadcast")
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
