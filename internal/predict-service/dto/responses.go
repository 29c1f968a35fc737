package dto

import "time"

type RoundResponse struct {
	Epoch        int64      `json:"epoch"`
	Status       string     `json:"status"`
	OpenAt       time.Time  `json:"open_at"`
	LockAt       time.Time  `json:"lock_at"`
	RedPool      string     `json:"red_pool"`
	BluePool     string     `json:"blue_pool"`
	Winner       string     `json:"winner,omitempty"`
	RewardBase   string     `json:"reward_base,omitempty"`
	RewardAmount string     `json:"reward_amount,omitempty"`
	Treasury     string     `json:"treasury,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

type BetResponse struct {
	Epoch       int64     `json:"epoch"`
	Participant string    `json:"participant"`
	Side        string    `json:"side"`
	Amount      string    `json:"amount"`
	Claimed     bool      `json:"claimed"`
	Claimable   bool      `json:"claimable"`
	Payout      string    `json:"payout,omitempty"`
	PlacedAt    time.Time `json:"placed_at"`
}

type ClaimResponse struct {
	Epochs []int64 `json:"epochs"`
	Amount string  `json:"amount"`
}

type TreasuryResponse struct {
	Amount string `json:"amount"`
}

type UserRoundsResponse struct {
	Participant string  `json:"participant"`
	Offset      int     `json:"offset"`
	Epochs      []int64 `json:"epochs"`
}

type CountResponse struct {
	Participant string `json:"participant"`
	Count       int    `json:"count"`
}

type PausedResponse struct {
	Paused bool `json:"paused"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
