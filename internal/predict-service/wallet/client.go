package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	walletdto "github.com/radieske/saltypredict/internal/predict-service/wallet/dto"
)

var ErrInsufficientFunds = errors.New("wallet: insufficient funds")

// Client fala com o wallet-service: escrow das apostas e crédito dos prêmios
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Reserve bloqueia o valor da aposta na carteira do participante
func (c *Client) Reserve(ctx context.Context, userID string, units int64, externalRef string) (string, error) {
	var out walletdto.ReserveResponse
	err := c.post(ctx, "/wallet/reserve", walletdto.ReserveRequest{
		UserID: userID, AmountUnits: units, ExternalRef: externalRef,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ReservationID, nil
}

// Commit efetiva a reserva: o valor passa a pertencer ao jogo
func (c *Client) Commit(ctx context.Context, userID, externalRef string) error {
	return c.post(ctx, "/wallet/commit", walletdto.SettleRequest{UserID: userID, ExternalRef: externalRef}, nil)
}

// Refund devolve uma reserva (aposta rejeitada)
func (c *Client) Refund(ctx context.Context, userID, externalRef string) error {
	return c.post(ctx, "/wallet/refund", walletdto.SettleRequest{UserID: userID, ExternalRef: externalRef}, nil)
}

// Credit credita valor na carteira; idempotente por externalRef
func (c *Client) Credit(ctx context.Context, userID string, units int64, externalRef string) error {
	return c.post(ctx, "/wallet/credit", walletdto.CreditRequest{
		UserID: userID, AmountUnits: units, ExternalRef: externalRef,
	}, nil)
}

// Transfer implementa game.Payer creditando o destinatário
func (c *Client) Transfer(ctx context.Context, to common.Address, amount int64, ref string) error {
	return c.Credit(ctx, to.Hex(), amount, ref)
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusPaymentRequired {
		return ErrInsufficientFunds
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("wallet %s http %d", path, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
