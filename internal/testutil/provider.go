package testutil

import (
	"context"
	"fmt"

	"github.com/meridianpay/custodyops/internal/cardgateway"
	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/provider"
	"github.com/meridianpay/custodyops/internal/service"
)

// StubProvider satisfies service.ProviderAPI by routing each call to the
// corresponding function field. Nil fields reject the call so tests fail
// loudly on unexpected provider traffic.
type StubProvider struct {
	CreateCustomerFunc           func(provider.CreateCustomerRequest) (*models.ProviderCustomer, error)
	GetCustomerFunc              func(string) (*models.ProviderCustomer, error)
	CreateKYCLinkFunc            func(provider.CreateKYCLinkRequest) (*models.ProviderKYCLink, error)
	CreateWalletFunc             func(string, provider.CreateWalletRequest) (*models.ProviderWallet, error)
	ListWalletsFunc              func(string) ([]models.ProviderWallet, error)
	WalletHistoryFunc            func(string, string) ([]models.ProviderWalletTransaction, error)
	CreateTransferFunc           func(provider.CreateTransferRequest) (*models.ProviderTransfer, error)
	GetTransferFunc              func(string) (*models.ProviderTransfer, error)
	CreateExternalAccountFunc    func(provider.CreateExternalAccountRequest) (*provider.ProviderExternalAccount, error)
	CreateVirtualAccountFunc     func(string, provider.CreateVirtualAccountRequest) (*models.ProviderVirtualAccount, error)
	CreateLiquidationAddressFunc func(string, provider.CreateLiquidationAddressRequest) (*models.ProviderLiquidationAddress, error)
	LiquidationAddressDrainsFunc func(string, string) ([]models.ProviderDrain, error)
}

var _ service.ProviderAPI = (*StubProvider)(nil)

func (s *StubProvider) CreateCustomer(_ context.Context, req provider.CreateCustomerRequest, _ ...provider.CallOption) (*models.ProviderCustomer, error) {
	if s.CreateCustomerFunc == nil {
		return nil, fmt.Errorf("unexpected CreateCustomer")
	}
	return s.CreateCustomerFunc(req)
}

func (s *StubProvider) GetCustomer(_ context.Context, customerID string) (*models.ProviderCustomer, error) {
	if s.GetCustomerFunc == nil {
		return nil, fmt.Errorf("unexpected GetCustomer")
	}
	return s.GetCustomerFunc(customerID)
}

func (s *StubProvider) CreateKYCLink(_ context.Context, req provider.CreateKYCLinkRequest, _ ...provider.CallOption) (*models.ProviderKYCLink, error) {
	if s.CreateKYCLinkFunc == nil {
		return nil, fmt.Errorf("unexpected CreateKYCLink")
	}
	return s.CreateKYCLinkFunc(req)
}

func (s *StubProvider) CreateWallet(_ context.Context, customerID string, req provider.CreateWalletRequest, _ ...provider.CallOption) (*models.ProviderWallet, error) {
	if s.CreateWalletFunc == nil {
		return nil, fmt.Errorf("unexpected CreateWallet")
	}
	return s.CreateWalletFunc(customerID, req)
}

func (s *StubProvider) ListWallets(_ context.Context, customerID string) ([]models.ProviderWallet, error) {
	if s.ListWalletsFunc == nil {
		return nil, fmt.Errorf("unexpected ListWallets")
	}
	return s.ListWalletsFunc(customerID)
}

func (s *StubProvider) WalletHistory(_ context.Context, customerID, walletID string) ([]models.ProviderWalletTransaction, error) {
	if s.WalletHistoryFunc == nil {
		return nil, fmt.Errorf("unexpected WalletHistory")
	}
	return s.WalletHistoryFunc(customerID, walletID)
}

func (s *StubProvider) CreateTransfer(_ context.Context, req provider.CreateTransferRequest, _ ...provider.CallOption) (*models.ProviderTransfer, error) {
	if s.CreateTransferFunc == nil {
		return nil, fmt.Errorf("unexpected CreateTransfer")
	}
	return s.CreateTransferFunc(req)
}

func (s *StubProvider) GetTransfer(_ context.Context, transferID string) (*models.ProviderTransfer, error) {
	if s.GetTransferFunc == nil {
		return nil, fmt.Errorf("unexpected GetTransfer")
	}
	return s.GetTransferFunc(transferID)
}

func (s *StubProvider) CreateExternalAccount(_ context.Context, _ string, req provider.CreateExternalAccountRequest, _ ...provider.CallOption) (*provider.ProviderExternalAccount, error) {
	if s.CreateExternalAccountFunc == nil {
		return nil, fmt.Errorf("unexpected CreateExternalAccount")
	}
	return s.CreateExternalAccountFunc(req)
}

func (s *StubProvider) CreateVirtualAccount(_ context.Context, customerID string, req provider.CreateVirtualAccountRequest, _ ...provider.CallOption) (*models.ProviderVirtualAccount, error) {
	if s.CreateVirtualAccountFunc == nil {
		return nil, fmt.Errorf("unexpected CreateVirtualAccount")
	}
	return s.CreateVirtualAccountFunc(customerID, req)
}

func (s *StubProvider) CreateLiquidationAddress(_ context.Context, customerID string, req provider.CreateLiquidationAddressRequest, _ ...provider.CallOption) (*models.ProviderLiquidationAddress, error) {
	if s.CreateLiquidationAddressFunc == nil {
		return nil, fmt.Errorf("unexpected CreateLiquidationAddress")
	}
	return s.CreateLiquidationAddressFunc(customerID, req)
}

func (s *StubProvider) LiquidationAddressDrains(_ context.Context, customerID, addressID string) ([]models.ProviderDrain, error) {
	if s.LiquidationAddressDrainsFunc == nil {
		return nil, fmt.Errorf("unexpected LiquidationAddressDrains")
	}
	return s.LiquidationAddressDrainsFunc(customerID, addressID)
}

// StubGateway satisfies service.CardGatewayAPI the same way.
type StubGateway struct {
	CreateCardFunc    func(cardgateway.CreateCardRequest) (*models.ProviderCard, error)
	GetCardFunc       func(string) (*models.ProviderCard, error)
	SetCardStatusFunc func(string, string) (*models.ProviderCard, error)
}

var _ service.CardGatewayAPI = (*StubGateway)(nil)

func (s *StubGateway) CreateCard(_ context.Context, req cardgateway.CreateCardRequest) (*models.ProviderCard, error) {
	if s.CreateCardFunc == nil {
		return nil, fmt.Errorf("unexpected CreateCard")
	}
	return s.CreateCardFunc(req)
}

func (s *StubGateway) GetCard(_ context.Context, cardID string) (*models.ProviderCard, error) {
	if s.GetCardFunc == nil {
		return nil, fmt.Errorf("unexpected GetCard")
	}
	return s.GetCardFunc(cardID)
}

func (s *StubGateway) SetCardStatus(_ context.Context, cardID, status string) (*models.ProviderCard, error) {
	if s.SetCardStatusFunc == nil {
		return nil, fmt.Errorf("unexpected SetCardStatus")
	}
	return s.SetCardStatusFunc(cardID, status)
}
