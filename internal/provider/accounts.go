package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/meridianpay/custodyops/internal/models"
)

type CreateVirtualAccountRequest struct {
	SourceCurrency      string `json:"source_currency"`
	DestinationCurrency string `json:"destination_currency"`
	DestinationAddress  string `json:"destination_address,omitempty"`
	DestinationWalletID string `json:"destination_wallet_id,omitempty"`
}

func (c *Client) CreateVirtualAccount(ctx context.Context, customerID string, req CreateVirtualAccountRequest, opts ...CallOption) (*models.ProviderVirtualAccount, error) {
	var out models.ProviderVirtualAccount
	path := fmt.Sprintf("/customers/%s/virtual_accounts", customerID)
	if err := c.do(ctx, http.MethodPost, path, req, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetVirtualAccount(ctx context.Context, customerID, accountID string) (*models.ProviderVirtualAccount, error) {
	var out models.ProviderVirtualAccount
	path := fmt.Sprintf("/customers/%s/virtual_accounts/%s", customerID, accountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VirtualAccountActivity lists recent deposit events for a virtual account.
func (c *Client) VirtualAccountActivity(ctx context.Context, customerID, accountID string) ([]models.ProviderDeposit, error) {
	var out listResponse[models.ProviderDeposit]
	path := fmt.Sprintf("/customers/%s/virtual_accounts/%s/history", customerID, accountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

type CreateLiquidationAddressRequest struct {
	Chain               string `json:"chain"`
	Currency            string `json:"currency"`
	DestinationRail     string `json:"destination_payment_rail"`
	DestinationCurrency string `json:"destination_currency"`
	ExternalAccountID   string `json:"external_account_id,omitempty"`
	DestinationAddress  string `json:"destination_address,omitempty"`
}

func (c *Client) CreateLiquidationAddress(ctx context.Context, customerID string, req CreateLiquidationAddressRequest, opts ...CallOption) (*models.ProviderLiquidationAddress, error) {
	var out models.ProviderLiquidationAddress
	path := fmt.Sprintf("/customers/%s/liquidation_addresses", customerID)
	if err := c.do(ctx, http.MethodPost, path, req, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetLiquidationAddress(ctx context.Context, customerID, addressID string) (*models.ProviderLiquidationAddress, error) {
	var out models.ProviderLiquidationAddress
	path := fmt.Sprintf("/customers/%s/liquidation_addresses/%s", customerID, addressID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LiquidationAddressDrains lists payout events recorded against a liquidation
// address: each drain is crypto received on the address and forwarded to the
// configured destination rail.
func (c *Client) LiquidationAddressDrains(ctx context.Context, customerID, addressID string) ([]models.ProviderDrain, error) {
	var out listResponse[models.ProviderDrain]
	path := fmt.Sprintf("/customers/%s/liquidation_addresses/%s/drains", customerID, addressID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
