// Package testutil provides an in-memory Mirror implementation for tests
// that exercise service and webhook logic without a database.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/service"
	"github.com/meridianpay/custodyops/internal/store"
)

// Mirror keeps every table in maps keyed the way the real store keys them.
// All methods are safe for concurrent use.
type Mirror struct {
	mu sync.Mutex

	CustomersByUser     map[uuid.UUID]models.Customer
	WalletsByProviderID map[string]models.Wallet
	BalancesByWallet    map[uuid.UUID][]models.Balance
	TransfersByProvider map[string]models.Transfer
	CardsByProviderID   map[string]models.Card
	CardTxByProviderID  map[string]models.CardTransaction
	VirtualAccounts     map[string]models.VirtualAccount
	Liquidation         map[string]models.LiquidationAddress
	Notifications       []models.Notification
	Preferences         map[uuid.UUID]models.NotificationPreference
	AuditEntries        []models.AuditLogEntry

	// FailNotifications makes InsertNotification return an error, for
	// failure-isolation tests.
	FailNotifications bool
}

var _ service.Mirror = (*Mirror)(nil)

func NewMirror() *Mirror {
	return &Mirror{
		CustomersByUser:     make(map[uuid.UUID]models.Customer),
		WalletsByProviderID: make(map[string]models.Wallet),
		BalancesByWallet:    make(map[uuid.UUID][]models.Balance),
		TransfersByProvider: make(map[string]models.Transfer),
		CardsByProviderID:   make(map[string]models.Card),
		CardTxByProviderID:  make(map[string]models.CardTransaction),
		VirtualAccounts:     make(map[string]models.VirtualAccount),
		Liquidation:         make(map[string]models.LiquidationAddress),
		Preferences:         make(map[uuid.UUID]models.NotificationPreference),
	}
}

func (m *Mirror) UpsertCustomer(_ context.Context, c models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.CustomersByUser[c.UserID]
	if ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
	m.CustomersByUser[c.UserID] = c
	return nil
}

func (m *Mirror) GetCustomerByUserID(_ context.Context, userID uuid.UUID) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.CustomersByUser[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &c, nil
}

func (m *Mirror) GetCustomerByProviderID(_ context.Context, providerID string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.CustomersByUser {
		if c.ProviderCustomerID == providerID {
			return &c, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *Mirror) UpsertWallet(_ context.Context, w models.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.WalletsByProviderID[w.ProviderWalletID]; ok {
		w.ID = existing.ID
		w.CreatedAt = existing.CreatedAt
	} else {
		w.CreatedAt = time.Now()
	}
	w.UpdatedAt = time.Now()
	m.WalletsByProviderID[w.ProviderWalletID] = w
	return nil
}

func (m *Mirror) GetWalletByID(_ context.Context, id uuid.UUID) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.WalletsByProviderID {
		if w.ID == id {
			return &w, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *Mirror) GetWalletByProviderID(_ context.Context, providerID string) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.WalletsByProviderID[providerID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &w, nil
}

func (m *Mirror) ListWalletsByUser(_ context.Context, userID uuid.UUID) ([]models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Wallet
	for _, w := range m.WalletsByProviderID {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *Mirror) ReplaceBalances(_ context.Context, walletID uuid.UUID, totals map[models.BalanceKey]decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var balances []models.Balance
	for key, amount := range totals {
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		balances = append(balances, models.Balance{
			WalletID: walletID, Currency: key.Currency, Chain: key.Chain,
			Amount: amount, UpdatedAt: time.Now(),
		})
	}
	m.BalancesByWallet[walletID] = balances
	return nil
}

func (m *Mirror) ListBalances(_ context.Context, walletID uuid.UUID) ([]models.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.BalancesByWallet[walletID], nil
}

func (m *Mirror) UpsertTransfer(_ context.Context, t models.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.TransfersByProvider[t.ProviderTransferID]; ok {
		t.ID = existing.ID
		t.Kind = existing.Kind
		t.CreatedAt = existing.CreatedAt
		if existing.CompletedAt != nil {
			t.CompletedAt = existing.CompletedAt
		}
		if existing.CancelledAt != nil {
			t.CancelledAt = existing.CancelledAt
		}
	} else {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = time.Now()
	m.TransfersByProvider[t.ProviderTransferID] = t
	return nil
}

func (m *Mirror) GetTransferByID(_ context.Context, id uuid.UUID) (*models.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.TransfersByProvider {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *Mirror) GetTransferByProviderID(_ context.Context, providerID string) (*models.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.TransfersByProvider[providerID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &t, nil
}

func (m *Mirror) ListTransfersByUser(_ context.Context, userID uuid.UUID, filter store.TransferFilter) ([]models.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transfer
	for _, t := range m.TransfersByProvider {
		if t.UserID != userID {
			continue
		}
		if filter.Kind != "" && t.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *Mirror) UpdateTransferStatus(_ context.Context, providerID string, status models.TransferStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.TransfersByProvider[providerID]
	if !ok {
		return apperr.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	if status == models.TransferStatusCompleted && t.CompletedAt == nil {
		now := time.Now()
		t.CompletedAt = &now
	}
	m.TransfersByProvider[providerID] = t
	return nil
}

func (m *Mirror) CancelTransfer(_ context.Context, id, userID uuid.UUID) (*models.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, t := range m.TransfersByProvider {
		if t.ID != id || t.UserID != userID {
			continue
		}
		if t.Status != models.TransferStatusPending {
			return nil, store.ErrTransferNotCancellable
		}
		now := time.Now()
		t.Status = models.TransferStatusCancelled
		t.CancelledAt = &now
		t.UpdatedAt = now
		m.TransfersByProvider[key] = t
		return &t, nil
	}
	return nil, apperr.ErrNotFound
}

func (m *Mirror) UpsertCard(_ context.Context, c models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.CardsByProviderID[c.ProviderCardID]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
	m.CardsByProviderID[c.ProviderCardID] = c
	return nil
}

func (m *Mirror) GetCardByID(_ context.Context, id uuid.UUID) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.CardsByProviderID {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *Mirror) GetCardByProviderID(_ context.Context, providerID string) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.CardsByProviderID[providerID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &c, nil
}

func (m *Mirror) ListCardsByUser(_ context.Context, userID uuid.UUID) ([]models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Card
	for _, c := range m.CardsByProviderID {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Mirror) UpdateCardStatus(_ context.Context, providerID string, status models.CardStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.CardsByProviderID[providerID]
	if !ok {
		return apperr.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	m.CardsByProviderID[providerID] = c
	return nil
}

func (m *Mirror) UpdateCardLimits(_ context.Context, id uuid.UUID, daily, monthly, perTx decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, c := range m.CardsByProviderID {
		if c.ID == id {
			c.DailyLimit = daily
			c.MonthlyLimit = monthly
			c.PerTransactionLimit = perTx
			c.UpdatedAt = time.Now()
			m.CardsByProviderID[key] = c
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *Mirror) UpdateCardSpend(_ context.Context, id uuid.UUID, dailySpend, monthlySpend decimal.Decimal, dailyReset, monthlyReset time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, c := range m.CardsByProviderID {
		if c.ID == id {
			c.CurrentDailySpend = dailySpend
			c.CurrentMonthlySpend = monthlySpend
			c.LastDailyReset = dailyReset
			c.LastMonthlyReset = monthlyReset
			c.UpdatedAt = time.Now()
			m.CardsByProviderID[key] = c
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *Mirror) UpsertCardTransaction(_ context.Context, t models.CardTransaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.CardTxByProviderID[t.ProviderTransactionID]; ok {
		if existing.Status != models.CardTxSettled {
			existing.Status = t.Status
		}
		if existing.SettledAt == nil {
			existing.SettledAt = t.SettledAt
		}
		m.CardTxByProviderID[t.ProviderTransactionID] = existing
		return false, nil
	}
	t.CreatedAt = time.Now()
	m.CardTxByProviderID[t.ProviderTransactionID] = t
	return true, nil
}

func (m *Mirror) ListCardTransactions(_ context.Context, cardID uuid.UUID, _ int) ([]models.CardTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CardTransaction
	for _, t := range m.CardTxByProviderID {
		if t.CardID == cardID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Mirror) UpsertVirtualAccount(_ context.Context, v models.VirtualAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.VirtualAccounts[v.ProviderAccountID]; ok {
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
	} else {
		v.CreatedAt = time.Now()
	}
	v.UpdatedAt = time.Now()
	m.VirtualAccounts[v.ProviderAccountID] = v
	return nil
}

func (m *Mirror) GetVirtualAccountByProviderID(_ context.Context, providerID string) (*models.VirtualAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.VirtualAccounts[providerID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &v, nil
}

func (m *Mirror) ListVirtualAccountsByUser(_ context.Context, userID uuid.UUID) ([]models.VirtualAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.VirtualAccount
	for _, v := range m.VirtualAccounts {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *Mirror) UpsertLiquidationAddress(_ context.Context, l models.LiquidationAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.Liquidation[l.ProviderAddressID]; ok {
		l.ID = existing.ID
		l.CreatedAt = existing.CreatedAt
	} else {
		l.CreatedAt = time.Now()
	}
	l.UpdatedAt = time.Now()
	m.Liquidation[l.ProviderAddressID] = l
	return nil
}

func (m *Mirror) GetLiquidationAddressByProviderID(_ context.Context, providerID string) (*models.LiquidationAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.Liquidation[providerID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &l, nil
}

func (m *Mirror) ListLiquidationAddressesByUser(_ context.Context, userID uuid.UUID) ([]models.LiquidationAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LiquidationAddress
	for _, l := range m.Liquidation {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Mirror) InsertNotification(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNotifications {
		return apperr.ErrPersistence
	}
	n.CreatedAt = time.Now()
	m.Notifications = append(m.Notifications, n)
	return nil
}

func (m *Mirror) ListNotificationsByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, _ int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.Notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *Mirror) MarkNotificationRead(_ context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.Notifications {
		if n.ID == id && n.UserID == userID {
			m.Notifications[i].Read = true
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *Mirror) GetPreference(_ context.Context, userID uuid.UUID) (models.NotificationPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Preferences[userID]; ok {
		return p, nil
	}
	return models.DefaultPreference(userID), nil
}

func (m *Mirror) UpsertPreference(_ context.Context, p models.NotificationPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = time.Now()
	m.Preferences[p.UserID] = p
	return nil
}

func (m *Mirror) InsertAuditEntry(_ context.Context, e models.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.CreatedAt = time.Now()
	m.AuditEntries = append(m.AuditEntries, e)
	return nil
}

// NotificationCount returns the number of stored notifications of the given
// type.
func (m *Mirror) NotificationCount(notificationType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int
	for _, n := range m.Notifications {
		if n.Type == notificationType {
			count++
		}
	}
	return count
}
