package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/cardgateway"
	"github.com/meridianpay/custodyops/internal/models"
)

const (
	dailyWindow   = 24 * time.Hour
	monthlyWindow = 30 * 24 * time.Hour
)

// Default spend ceilings applied to newly issued cards until the user
// changes them.
var (
	defaultDailyLimit   = decimal.NewFromInt(1000)
	defaultMonthlyLimit = decimal.NewFromInt(10000)
	defaultPerTxLimit   = decimal.NewFromInt(500)
)

type CardService struct {
	mirror   Mirror
	gateway  CardGatewayAPI
	notifier *Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewCardService(mirror Mirror, gateway CardGatewayAPI, notifier *Notifier, logger *zap.Logger) *CardService {
	return &CardService{mirror: mirror, gateway: gateway, notifier: notifier, logger: logger, now: time.Now}
}

func (s *CardService) Create(ctx context.Context, userID uuid.UUID, cardType models.CardType, brand models.CardBrand) (*models.Card, error) {
	switch cardType {
	case models.CardTypeVirtual, models.CardTypePhysical:
	default:
		return nil, apperr.Input("type", "type must be virtual or physical")
	}
	switch brand {
	case models.CardBrandVisa, models.CardBrandMastercard:
	default:
		return nil, apperr.Input("brand", "brand must be visa or mastercard")
	}

	customer, err := requireCustomer(ctx, s.mirror, userID)
	if err != nil {
		return nil, err
	}

	pc, err := s.gateway.CreateCard(ctx, cardgateway.CreateCardRequest{
		CustomerID: customer.ProviderCustomerID,
		Type:       string(cardType),
		Brand:      string(brand),
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	card := models.Card{
		ID:                  uuid.New(),
		UserID:              userID,
		ProviderCardID:      pc.ID,
		Type:                cardType,
		Brand:               brand,
		Status:              mapCardStatus(pc.Status),
		ActivationStatus:    pc.ActivationStatus,
		LastFour:            pc.LastFour,
		DailyLimit:          defaultDailyLimit,
		MonthlyLimit:        defaultMonthlyLimit,
		PerTransactionLimit: defaultPerTxLimit,
		CurrentDailySpend:   decimal.Zero,
		CurrentMonthlySpend: decimal.Zero,
		LastDailyReset:      now,
		LastMonthlyReset:    now,
	}
	if err := s.mirror.UpsertCard(ctx, card); err != nil {
		return nil, fmt.Errorf("mirror card: %w", err)
	}

	s.notifier.Notify(ctx, NotificationInput{
		UserID:   userID,
		Type:     "card_created",
		Category: models.CategoryCard,
		Priority: models.PriorityNormal,
		Title:    "Card issued",
		Body:     fmt.Sprintf("Your %s %s card ending in %s is on its way.", brand, cardType, card.LastFour),
	})
	return s.mirror.GetCardByProviderID(ctx, pc.ID)
}

func mapCardStatus(status string) models.CardStatus {
	switch status {
	case "active":
		return models.CardStatusActive
	case "frozen", "locked":
		return models.CardStatusFrozen
	case "cancelled", "canceled", "terminated":
		return models.CardStatusCancelled
	case "expired":
		return models.CardStatusExpired
	default:
		return models.CardStatusPending
	}
}

func (s *CardService) Get(ctx context.Context, userID, cardID uuid.UUID) (*models.Card, error) {
	c, err := s.mirror.GetCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	return c, nil
}

func (s *CardService) List(ctx context.Context, userID uuid.UUID) ([]models.Card, error) {
	return s.mirror.ListCardsByUser(ctx, userID)
}

func (s *CardService) Transactions(ctx context.Context, cardID uuid.UUID, limit int) ([]models.CardTransaction, error) {
	return s.mirror.ListCardTransactions(ctx, cardID, limit)
}

func (s *CardService) Freeze(ctx context.Context, userID, cardID uuid.UUID) (*models.Card, error) {
	return s.setStatus(ctx, userID, cardID, models.CardStatusFrozen, "frozen")
}

func (s *CardService) Unfreeze(ctx context.Context, userID, cardID uuid.UUID) (*models.Card, error) {
	return s.setStatus(ctx, userID, cardID, models.CardStatusActive, "active")
}

func (s *CardService) setStatus(ctx context.Context, userID, cardID uuid.UUID, local models.CardStatus, gatewayStatus string) (*models.Card, error) {
	card, err := s.Get(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	if card.Status == models.CardStatusCancelled || card.Status == models.CardStatusExpired {
		return nil, apperr.Precondition("card is no longer active")
	}

	if _, err := s.gateway.SetCardStatus(ctx, card.ProviderCardID, gatewayStatus); err != nil {
		return nil, err
	}
	if err := s.mirror.UpdateCardStatus(ctx, card.ProviderCardID, local); err != nil {
		return nil, err
	}
	return s.mirror.GetCardByID(ctx, cardID)
}

func (s *CardService) UpdateLimits(ctx context.Context, userID, cardID uuid.UUID, daily, monthly, perTx decimal.Decimal) (*models.Card, error) {
	if !daily.IsPositive() || !monthly.IsPositive() || !perTx.IsPositive() {
		return nil, apperr.Input("limits", "limits must be positive")
	}
	card, err := s.Get(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	if err := s.mirror.UpdateCardLimits(ctx, card.ID, daily, monthly, perTx); err != nil {
		return nil, err
	}
	return s.mirror.GetCardByID(ctx, cardID)
}

// ApplySpend rolls one approved purchase into the card's running counters
// with the lazy window reset. No scheduled sweep exists: the reset happens on
// the first spend after the window elapses.
func (s *CardService) ApplySpend(ctx context.Context, card *models.Card, amount decimal.Decimal) error {
	now := s.now()
	daily, dailyReset := models.NextSpend(card.CurrentDailySpend, card.LastDailyReset, dailyWindow, amount, now)
	monthly, monthlyReset := models.NextSpend(card.CurrentMonthlySpend, card.LastMonthlyReset, monthlyWindow, amount, now)
	return s.mirror.UpdateCardSpend(ctx, card.ID, daily, monthly, dailyReset, monthlyReset)
}

// RecordTransaction ingests a gateway card transaction: dedup on the
// provider transaction ID, spend-counter update for newly seen approved
// purchases, and at most one notification per transaction.
func (s *CardService) RecordTransaction(ctx context.Context, pt models.ProviderCardTransaction) (*models.CardTransaction, bool, error) {
	card, err := s.mirror.GetCardByProviderID(ctx, pt.CardID)
	if err != nil {
		return nil, false, err
	}

	status := models.MapCardTransactionStatus(pt.Status)
	tx := models.CardTransaction{
		ID:                    uuid.New(),
		CardID:                card.ID,
		UserID:                card.UserID,
		ProviderTransactionID: pt.ID,
		Amount:                pt.Amount,
		Currency:              pt.Currency,
		MerchantName:          pt.MerchantName,
		MerchantCategory:      pt.MerchantCategory,
		Status:                status,
	}
	if status == models.CardTxSettled {
		now := s.now()
		tx.SettledAt = &now
	}

	inserted, err := s.mirror.UpsertCardTransaction(ctx, tx)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		// Redelivery: the row already reflects this transaction.
		return &tx, false, nil
	}

	if status == models.CardTxApproved || status == models.CardTxSettled {
		if err := s.ApplySpend(ctx, card, pt.Amount); err != nil {
			return nil, true, err
		}
	}

	priority := models.PriorityNormal
	title := "Card purchase"
	body := fmt.Sprintf("%s %s at %s", pt.Amount, pt.Currency, pt.MerchantName)
	if status == models.CardTxDeclined {
		priority = models.PriorityHigh
		title = "Card purchase declined"
	}
	s.notifier.Notify(ctx, NotificationInput{
		UserID:   card.UserID,
		Type:     "card_transaction",
		Category: models.CategoryCard,
		Priority: priority,
		Title:    title,
		Body:     body,
	})
	return &tx, true, nil
}
