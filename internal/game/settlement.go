package game

import (
	"errors"
	"math"

	"github.com/holiman/uint256"
)

var errAmountOverflow = errors.New("amount overflow")

// Settlement é o resultado financeiro da resolução de uma rodada
type Settlement struct {
	RewardBase   int64 // pool vencedor
	RewardAmount int64 // pool total menos a taxa
	Treasury     int64 // valor destinado à tesouraria
}

// Settle calcula a razão de prêmio de uma rodada.
// Sem apostas no lado vencedor, todo o pool vai para a tesouraria.
func Settle(e Epoch, winner Side, feeBps int64) (Settlement, error) {
	total := e.TotalPool()
	winPool := e.Pool(winner)
	if winPool == 0 {
		return Settlement{Treasury: total}, nil
	}
	fee, err := mulDiv(total, feeBps, MaxFeeBps)
	if err != nil {
		return Settlement{}, err
	}
	return Settlement{
		RewardBase:   winPool,
		RewardAmount: total - fee,
		Treasury:     fee,
	}, nil
}

// Payout aplica a razão cacheada ao valor apostado (arredonda para baixo)
func Payout(e Epoch, stake int64) (int64, error) {
	if e.RewardBase == 0 {
		return 0, nil
	}
	return mulDiv(stake, e.RewardAmount, e.RewardBase)
}

// mulDiv calcula floor(a*b/d) com intermediário de 256 bits
func mulDiv(a, b, d int64) (int64, error) {
	if a < 0 || b < 0 || d <= 0 {
		return 0, errAmountOverflow
	}
	z, overflow := new(uint256.Int).MulDivOverflow(
		uint256.NewInt(uint64(a)), uint256.NewInt(uint64(b)), uint256.NewInt(uint64(d)),
	)
	if overflow || !z.IsUint64() || z.Uint64() > math.MaxInt64 {
		return 0, errAmountOverflow
	}
	return int64(z.Uint64()), nil
}

// addAmount soma valores checando overflow
func addAmount(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, errAmountOverflow
	}
	return a + b, nil
}
