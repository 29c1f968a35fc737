package dto

// Espelha os contratos HTTP do wallet-service
type ReserveRequest struct {
	UserID      string `json:"userId"`
	AmountUnits int64  `json:"amount_units"`
	ExternalRef string `json:"external_ref"`
}

type ReserveResponse struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

type SettleRequest struct {
	UserID      string `json:"userId"`
	ExternalRef string `json:"external_ref"`
}

type CreditRequest struct {
	UserID      string `json:"userId"`
	AmountUnits int64  `json:"amount_units"`
	ExternalRef string `json:"external_ref"`
}
