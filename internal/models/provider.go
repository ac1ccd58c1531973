package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Wire shapes returned by the ledger provider. Field sets are the subset this
// backend reads; unknown fields are ignored on decode.

type ProviderEndorsement struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type ProviderCustomer struct {
	ID           string                `json:"id"`
	Status       string                `json:"status"`
	FirstName    string                `json:"first_name"`
	LastName     string                `json:"last_name"`
	Email        string                `json:"email"`
	Endorsements []ProviderEndorsement `json:"endorsements"`
}

type ProviderKYCLink struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	KYCLink    string `json:"kyc_link"`
	TOSLink    string `json:"tos_link"`
	KYCStatus  string `json:"kyc_status"`
	TOSStatus  string `json:"tos_status"`
}

type ProviderWallet struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Chain  string `json:"chain"`
	Tag    string `json:"tag"`
}

// ProviderWalletSide identifies one end of a wallet transaction. Exactly one
// of WalletID or Address is set depending on whether the side is on-platform.
type ProviderWalletSide struct {
	WalletID string `json:"wallet_id,omitempty"`
	Address  string `json:"address,omitempty"`
	Currency string `json:"currency,omitempty"`
	Chain    string `json:"chain,omitempty"`
}

type ProviderWalletTransaction struct {
	ID          string             `json:"id"`
	Amount      decimal.Decimal    `json:"amount"`
	Currency    string             `json:"currency"`
	Chain       string             `json:"chain"`
	Status      string             `json:"status"`
	Source      ProviderWalletSide `json:"source"`
	Destination ProviderWalletSide `json:"destination"`
	CreatedAt   string             `json:"created_at"`
}

type ProviderTransfer struct {
	ID           string          `json:"id"`
	State        string          `json:"state"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	DeveloperFee decimal.Decimal `json:"developer_fee"`
	Source       json.RawMessage `json:"source,omitempty"`
	Destination  json.RawMessage `json:"destination,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

type ProviderVirtualAccount struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	Currency           string `json:"currency"`
	BankName           string `json:"source_deposit_instructions_bank_name"`
	RoutingNumber      string `json:"source_deposit_instructions_routing_number"`
	AccountNumber      string `json:"source_deposit_instructions_account_number"`
	DestinationAddress string `json:"destination_address"`
}

type ProviderDeposit struct {
	ID               string          `json:"id"`
	VirtualAccountID string          `json:"virtual_account_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	Description      string          `json:"description"`
}

type ProviderLiquidationAddress struct {
	ID                  string `json:"id"`
	Address             string `json:"address"`
	Chain               string `json:"chain"`
	Currency            string `json:"currency"`
	DestinationRail     string `json:"destination_payment_rail"`
	DestinationCurrency string `json:"destination_currency"`
	State               string `json:"state"`
}

// ProviderDrain is one payout event from a liquidation address: crypto
// received on the address, converted, and sent out on the destination rail.
type ProviderDrain struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	State           string          `json:"state"`
	DestinationRail string          `json:"destination_payment_rail"`
	CreatedAt       string          `json:"created_at"`
}

type ProviderCard struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	ActivationStatus string `json:"activation_status"`
	LastFour         string `json:"last_four"`
	Brand            string `json:"brand"`
	Type             string `json:"type"`
}

type ProviderCardTransaction struct {
	ID               string          `json:"id"`
	CardID           string          `json:"card_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	MerchantName     string          `json:"merchant_name"`
	MerchantCategory string          `json:"merchant_category"`
	Status           string          `json:"status"`
	Category         string          `json:"category"`
}
