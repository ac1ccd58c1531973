package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/custodyops/internal/models"
)

// TransferEndpoint describes one side of a provider transfer. The populated
// fields depend on the payment rail.
type TransferEndpoint struct {
	PaymentRail       string `json:"payment_rail,omitempty"`
	Currency          string `json:"currency,omitempty"`
	WalletID          string `json:"wallet_id,omitempty"`
	Chain             string `json:"chain,omitempty"`
	ToAddress         string `json:"to_address,omitempty"`
	ExternalAccountID string `json:"external_account_id,omitempty"`
	CustomerID        string `json:"customer_id,omitempty"`
}

type CreateTransferRequest struct {
	Amount      decimal.Decimal  `json:"amount"`
	OnBehalfOf  string           `json:"on_behalf_of"`
	Source      TransferEndpoint `json:"source"`
	Destination TransferEndpoint `json:"destination"`
}

func (c *Client) CreateTransfer(ctx context.Context, req CreateTransferRequest, opts ...CallOption) (*models.ProviderTransfer, error) {
	var out models.ProviderTransfer
	if err := c.do(ctx, http.MethodPost, "/transfers", req, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTransfer(ctx context.Context, transferID string) (*models.ProviderTransfer, error) {
	var out models.ProviderTransfer
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/transfers/%s", transferID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateExternalAccountRequest registers a bank account for ACH rails.
type CreateExternalAccountRequest struct {
	Currency         string `json:"currency"`
	AccountOwnerName string `json:"account_owner_name"`
	AccountNumber    string `json:"account_number"`
	RoutingNumber    string `json:"routing_number"`
	AccountType      string `json:"account_type,omitempty"`
}

type ProviderExternalAccount struct {
	ID            string `json:"id"`
	Currency      string `json:"currency"`
	LastFour      string `json:"last_4"`
	RoutingNumber string `json:"routing_number"`
	Active        bool   `json:"active"`
}

func (c *Client) CreateExternalAccount(ctx context.Context, customerID string, req CreateExternalAccountRequest, opts ...CallOption) (*ProviderExternalAccount, error) {
	var out ProviderExternalAccount
	path := fmt.Sprintf("/customers/%s/external_accounts", customerID)
	if err := c.do(ctx, http.MethodPost, path, req, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}
