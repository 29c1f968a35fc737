package game

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type betKey struct {
	epoch       int64
	participant common.Address
}

// MemoryStore é uma implementação em memória de Store.
// Escritas de uma unidade ficam em staging e só são aplicadas se fn retornar nil.
type MemoryStore struct {
	mu     sync.RWMutex
	state  State
	epochs map[int64]Epoch
	bets   map[betKey]Bet
	index  map[common.Address][]int64
}

// NewMemoryStore cria um store vazio (jogo não pausado, sem rodadas)
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		epochs: make(map[int64]Epoch),
		bets:   make(map[betKey]Bet),
		index:  make(map[common.Address][]int64),
	}
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// cancelamento só vale antes de fn: depois dela a transferência pode já ter saído
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newMemTx(s, false)
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newMemTx(s, true))
}

var errReadOnly = errors.New("memory store: write in read-only view")

type memTx struct {
	s        *MemoryStore
	readOnly bool

	state    *State
	epochs   map[int64]Epoch
	bets     map[betKey]Bet
	appended map[common.Address][]int64
}

func newMemTx(s *MemoryStore, readOnly bool) *memTx {
	return &memTx{
		s:        s,
		readOnly: readOnly,
		epochs:   make(map[int64]Epoch),
		bets:     make(map[betKey]Bet),
		appended: make(map[common.Address][]int64),
	}
}

func (t *memTx) apply() {
	if t.state != nil {
		t.s.state = *t.state
	}
	for id, e := range t.epochs {
		t.s.epochs[id] = e
	}
	for k, b := range t.bets {
		t.s.bets[k] = b
	}
	for p, ids := range t.appended {
		t.s.index[p] = append(t.s.index[p], ids...)
	}
}

func (t *memTx) State(_ context.Context) (State, error) {
	if t.state != nil {
		return *t.state, nil
	}
	return t.s.state, nil
}

func (t *memTx) SetState(_ context.Context, st State) error {
	if t.readOnly {
		return errReadOnly
	}
	t.state = &st
	return nil
}

func (t *memTx) Epoch(_ context.Context, id int64) (Epoch, error) {
	if e, ok := t.epochs[id]; ok {
		return e, nil
	}
	if e, ok := t.s.epochs[id]; ok {
		return e, nil
	}
	return Epoch{}, ErrNotFound
}

func (t *memTx) InsertEpoch(ctx context.Context, e Epoch) error {
	if t.readOnly {
		return errReadOnly
	}
	if _, err := t.Epoch(ctx, e.ID); err == nil {
		return errors.New("memory store: epoch exists")
	}
	t.epochs[e.ID] = e
	return nil
}

func (t *memTx) UpdateEpoch(ctx context.Context, e Epoch) error {
	if t.readOnly {
		return errReadOnly
	}
	if _, err := t.Epoch(ctx, e.ID); err != nil {
		return err
	}
	t.epochs[e.ID] = e
	return nil
}

func (t *memTx) Bet(_ context.Context, epoch int64, participant common.Address) (Bet, error) {
	k := betKey{epoch, participant}
	if b, ok := t.bets[k]; ok {
		return b, nil
	}
	if b, ok := t.s.bets[k]; ok {
		return b, nil
	}
	return Bet{}, ErrNotFound
}

func (t *memTx) InsertBet(ctx context.Context, b Bet) error {
	if t.readOnly {
		return errReadOnly
	}
	if _, err := t.Bet(ctx, b.Epoch, b.Participant); err == nil {
		return ErrAlreadyBet
	}
	t.bets[betKey{b.Epoch, b.Participant}] = b
	t.appended[b.Participant] = append(t.appended[b.Participant], b.Epoch)
	return nil
}

func (t *memTx) MarkClaimed(ctx context.Context, epoch int64, participant common.Address) error {
	if t.readOnly {
		return errReadOnly
	}
	b, err := t.Bet(ctx, epoch, participant)
	if err != nil {
		return err
	}
	b.Claimed = true
	t.bets[betKey{epoch, participant}] = b
	return nil
}

func (t *memTx) rounds(participant common.Address) []int64 {
	base := t.s.index[participant]
	extra := t.appended[participant]
	if len(extra) == 0 {
		return base
	}
	out := make([]int64, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func (t *memTx) UserRoundsLength(_ context.Context, participant common.Address) (int, error) {
	return len(t.rounds(participant)), nil
}

func (t *memTx) UserRounds(_ context.Context, participant common.Address, offset, limit int) ([]int64, error) {
	all := t.rounds(participant)
	lo, hi := pageBounds(len(all), offset, limit)
	out := make([]int64, hi-lo)
	copy(out, all[lo:hi])
	return out, nil
}

// pageBounds limita [offset, offset+limit) ao tamanho disponível
func pageBounds(n, offset, limit int) (int, int) {
	if offset < 0 || limit <= 0 || offset >= n {
		return 0, 0
	}
	if limit > n-offset {
		limit = n - offset
	}
	return offset, offset + limit
}
