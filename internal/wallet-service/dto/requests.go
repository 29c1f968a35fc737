package dto

// CreditRequest credita saldo (depósito ou prêmio). external_ref garante idempotência.
type CreditRequest struct {
	UserID      string `json:"userId"`
	AmountUnits int64  `json:"amount_units"`
	ExternalRef string `json:"external_ref"`
}

type ReserveRequest struct {
	UserID      string `json:"userId"`
	AmountUnits int64  `json:"amount_units"`
	ExternalRef string `json:"external_ref"` // ex: bet:{epoch}:{address}
}

// SettleRequest serve para commit e refund de uma reserva
type SettleRequest struct {
	UserID      string `json:"userId"`
	ExternalRef string `json:"external_ref"`
}
