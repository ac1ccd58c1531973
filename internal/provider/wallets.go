package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/meridianpay/custodyops/internal/models"
)

// historyFetchLimit bounds one balance-recomputation fetch. Wallets with more
// lifetime transactions than this rely on the provider staying authoritative;
// see DESIGN.md.
const historyFetchLimit = 100

type CreateWalletRequest struct {
	Chain string `json:"chain"`
	Tag   string `json:"tag,omitempty"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

func (c *Client) CreateWallet(ctx context.Context, customerID string, req CreateWalletRequest, opts ...CallOption) (*models.ProviderWallet, error) {
	var out models.ProviderWallet
	path := fmt.Sprintf("/customers/%s/wallets", customerID)
	if err := c.do(ctx, http.MethodPost, path, req, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetWallet(ctx context.Context, customerID, walletID string) (*models.ProviderWallet, error) {
	var out models.ProviderWallet
	path := fmt.Sprintf("/customers/%s/wallets/%s", customerID, walletID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListWallets(ctx context.Context, customerID string) ([]models.ProviderWallet, error) {
	var out listResponse[models.ProviderWallet]
	path := fmt.Sprintf("/customers/%s/wallets", customerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// WalletHistory returns the wallet's most recent transactions, newest first,
// bounded by historyFetchLimit.
func (c *Client) WalletHistory(ctx context.Context, customerID, walletID string) ([]models.ProviderWalletTransaction, error) {
	var out listResponse[models.ProviderWalletTransaction]
	path := fmt.Sprintf("/customers/%s/wallets/%s/history?limit=%d", customerID, walletID, historyFetchLimit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
