package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/saltypredict/internal/round-projector/pubsub"
	"github.com/radieske/saltypredict/pkg/contracts/events"
)

// scriptedReader entrega as mensagens em ordem e depois cancela o contexto
type scriptedReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

type fakeLog struct{ seen map[int64]bool }

func (l *fakeLog) Record(_ context.Context, _ int, offset int64, _ events.GameEvent) (bool, error) {
	if l.seen[offset] {
		return false, nil
	}
	l.seen[offset] = true
	return true, nil
}

type fakeProjection struct {
	applied []events.GameEvent
	fail    error
}

func (p *fakeProjection) Apply(_ context.Context, e events.GameEvent) error {
	if p.fail != nil {
		return p.fail
	}
	p.applied = append(p.applied, e)
	return nil
}

type fakeDLQ struct{ msgs []kafka.Message }

func (d *fakeDLQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	d.msgs = append(d.msgs, msgs...)
	return nil
}

type fakeBroadcaster struct{ payloads [][]byte }

func (b *fakeBroadcaster) Publish(_ context.Context, channel string, payload []byte) error {
	if channel != pubsub.ChannelRoundUpdates {
		return errors.New("unexpected channel " + channel)
	}
	b.payloads = append(b.payloads, payload)
	return nil
}

func msg(t *testing.T, offset int64, ev events.GameEvent) kafka.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte(ev.Key()), Value: b}
}

type counters struct {
	consumed, duplicates int
	projected            map[string]int
	errors               map[string]int
}

func run(t *testing.T, p *Processor, msgs ...kafka.Message) *counters {
	t.Helper()
	c := &counters{projected: map[string]int{}, errors: map[string]int{}}
	p.OnConsumed = func() { c.consumed++ }
	p.OnDuplicate = func() { c.duplicates++ }
	p.OnProjected = func(typ string) { c.projected[typ]++ }
	p.OnError = func(stage string) { c.errors[stage]++ }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Reader = &scriptedReader{msgs: msgs, cancel: cancel}
	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	return c
}

func TestProcessorProjectsAndDeduplicates(t *testing.T) {
	proj := &fakeProjection{}
	bc := &fakeBroadcaster{}
	p := &Processor{Log: zap.NewNop(), Events: &fakeLog{seen: map[int64]bool{}}, Projection: proj, Broadcaster: bc}

	started := events.GameEvent{Type: events.TypeRoundStarted, Epoch: 1}
	bet := events.GameEvent{Type: events.TypeBetPlaced, Epoch: 1, Side: "RED", Amount: 5}

	c := run(t, p, msg(t, 0, started), msg(t, 1, bet), msg(t, 1, bet))

	assert.Equal(t, 3, c.consumed)
	assert.Equal(t, 1, c.duplicates)
	assert.Equal(t, map[string]int{events.TypeRoundStarted: 1, events.TypeBetPlaced: 1}, c.projected)
	require.Len(t, proj.applied, 2)
	assert.Equal(t, bet, proj.applied[1])

	require.Len(t, bc.payloads, 2)
	var upd pubsub.RoundUpdate
	require.NoError(t, json.Unmarshal(bc.payloads[1], &upd))
	assert.Equal(t, int64(1), upd.Epoch)
	assert.Equal(t, events.TypeBetPlaced, upd.Type)
}

func TestProcessorSendsUndecodableToDLQ(t *testing.T) {
	dlq := &fakeDLQ{}
	proj := &fakeProjection{}
	p := &Processor{Log: zap.NewNop(), DLQ: dlq, Events: &fakeLog{seen: map[int64]bool{}}, Projection: proj}

	c := run(t, p,
		kafka.Message{Offset: 0, Value: []byte("{not json")},
		kafka.Message{Offset: 1, Value: []byte(`{"epoch":1}`)},
	)

	assert.Equal(t, 2, c.errors["decode"])
	require.Len(t, dlq.msgs, 2)
	assert.Equal(t, []byte("{not json"), dlq.msgs[0].Value)
	assert.Empty(t, proj.applied)
}

func TestProcessorCountsProjectionErrors(t *testing.T) {
	p := &Processor{
		Log:        zap.NewNop(),
		Events:     &fakeLog{seen: map[int64]bool{}},
		Projection: &fakeProjection{fail: errors.New("redis down")},
	}

	c := run(t, p, msg(t, 0, events.GameEvent{Type: events.TypePaused}))

	assert.Equal(t, 1, c.errors["cache"])
	assert.Empty(t, c.projected)
}
