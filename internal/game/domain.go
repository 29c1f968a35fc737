package game

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Side é o lado apostado numa rodada
type Side string

const (
	SideRed  Side = "RED"
	SideBlue Side = "BLUE"
)

// Valid indica se o lado é Red ou Blue
func (s Side) Valid() bool { return s == SideRed || s == SideBlue }

// Status do ciclo de vida de uma rodada (epoch)
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusLocked   Status = "LOCKED"
	StatusResolved Status = "RESOLVED"
)

// Epoch é uma rodada do jogo.
// Status persistido é OPEN ou RESOLVED; LOCKED é derivado do relógio (ver StatusAt).
type Epoch struct {
	ID       int64
	OpenAt   time.Time
	LockAt   time.Time
	Status   Status
	RedPool  int64
	BluePool int64
	Winner   Side // vazio até RESOLVED

	// Razão de prêmio cacheada na resolução: payout = stake * RewardAmount / RewardBase
	RewardBase     int64
	RewardAmount   int64
	TreasuryAmount int64
	ResolvedAt     time.Time
}

// StatusAt calcula o status efetivo no instante now
func (e Epoch) StatusAt(now time.Time) Status {
	if e.Status == StatusResolved {
		return StatusResolved
	}
	if !now.Before(e.LockAt) {
		return StatusLocked
	}
	return StatusOpen
}

// Bettable indica se a janela de apostas ainda está aberta
func (e Epoch) Bettable(now time.Time) bool { return e.StatusAt(now) == StatusOpen }

// TotalPool soma os dois lados
func (e Epoch) TotalPool() int64 { return e.RedPool + e.BluePool }

// Pool retorna o total apostado em um lado
func (e Epoch) Pool(s Side) int64 {
	if s == SideRed {
		return e.RedPool
	}
	return e.BluePool
}

// Bet é o registro de aposta de um participante numa rodada
type Bet struct {
	Epoch       int64
	Participant common.Address
	Side        Side
	Amount      int64
	Claimed     bool
	PlacedAt    time.Time
}

// State agrupa o estado global do jogo (linha única)
type State struct {
	CurrentEpoch int64
	Treasury     int64
	Paused       bool
}

// Params são os parâmetros fixos do jogo
type Params struct {
	BetWindow time.Duration
	MinStake  int64
	FeeBps    int64 // 200 = 2%
}

// Default configuration values.
const (
	DefaultBetWindow = 45 * time.Second
	DefaultMinStake  = 1_000_000 // 0.001 em unidades base (1e9 por moeda)
	DefaultFeeBps    = 200
	MaxFeeBps        = 10_000
)

// DefaultParams retorna os parâmetros padrão
func DefaultParams() Params {
	return Params{BetWindow: DefaultBetWindow, MinStake: DefaultMinStake, FeeBps: DefaultFeeBps}
}
