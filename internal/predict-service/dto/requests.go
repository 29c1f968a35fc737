package dto

type PlaceBetRequest struct {
	Amount string `json:"amount"` // em moeda, ex: "1.0"
}

type ResolveRoundRequest struct {
	Winner string `json:"winner"` // "RED" | "BLUE"
}

type ClaimRequest struct {
	Epochs []int64 `json:"epochs"`
}
