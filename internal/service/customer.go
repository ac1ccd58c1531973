package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/models"
	"github.com/meridianpay/custodyops/internal/provider"
)

// CustomerService owns the provider-customer linkage and its verification
// lifecycle. It is the only service allowed to create provider customers.
type CustomerService struct {
	mirror   Mirror
	client   ProviderAPI
	notifier *Notifier
	logger   *zap.Logger
}

func NewCustomerService(mirror Mirror, client ProviderAPI, notifier *Notifier, logger *zap.Logger) *CustomerService {
	return &CustomerService{mirror: mirror, client: client, notifier: notifier, logger: logger}
}

type StartKYCRequest struct {
	FirstName string
	LastName  string
	Email     string
}

type StartKYCResult struct {
	Customer models.Customer
	KYCLink  string
	TOSLink  string
}

// StartKYC creates the provider customer on first initiation and opens a
// hosted KYC flow. Re-invocation with an existing linkage only opens a new
// link; the customer record is never recreated.
func (s *CustomerService) StartKYC(ctx context.Context, userID uuid.UUID, req StartKYCRequest) (*StartKYCResult, error) {
	if req.FirstName == "" || req.LastName == "" {
		return nil, apperr.Input("name", "first and last name are required")
	}
	if req.Email == "" {
		return nil, apperr.Input("email", "email is required")
	}

	existing, err := s.mirror.GetCustomerByUserID(ctx, userID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	customer := existing
	if customer == nil {
		// One logical creation per user: the pinned idempotency key makes a
		// replayed StartKYC map onto the same provider-side customer.
		created, err := s.client.CreateCustomer(ctx, provider.CreateCustomerRequest{
			Type:      "individual",
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
		}, provider.WithIdempotencyKey("customer-create-"+userID.String()))
		if err != nil {
			return nil, err
		}

		status, tier := models.MapCustomerStatus(created.Status, created.Endorsements)
		customer = &models.Customer{
			UserID:             userID,
			ProviderCustomerID: created.ID,
			VerificationStatus: status,
			Tier:               tier,
		}
		if err := s.mirror.UpsertCustomer(ctx, *customer); err != nil {
			return nil, fmt.Errorf("mirror customer: %w", err)
		}
	}

	link, err := s.client.CreateKYCLink(ctx, provider.CreateKYCLinkRequest{
		FullName: req.FirstName + " " + req.LastName,
		Email:    req.Email,
		Type:     "individual",
	}, provider.WithIdempotencyKey("kyc-link-"+userID.String()))
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, NotificationInput{
		UserID:   userID,
		Type:     "kyc_started",
		Category: models.CategoryAccount,
		Priority: models.PriorityNormal,
		Title:    "Identity verification started",
		Body:     "Complete the verification steps to unlock transfers and cards.",
	})

	return &StartKYCResult{Customer: *customer, KYCLink: link.KYCLink, TOSLink: link.TOSLink}, nil
}

func (s *CustomerService) Get(ctx context.Context, userID uuid.UUID) (*models.Customer, error) {
	return s.mirror.GetCustomerByUserID(ctx, userID)
}

// SyncFromProvider re-runs status mapping for a provider customer payload and
// upserts the mirror row. A notification is emitted only when the mapped
// status actually changed, so duplicate webhook deliveries stay silent.
func (s *CustomerService) SyncFromProvider(ctx context.Context, pc models.ProviderCustomer) (*models.Customer, error) {
	local, err := s.mirror.GetCustomerByProviderID(ctx, pc.ID)
	if err != nil {
		return nil, err
	}

	status, tier := models.MapCustomerStatus(pc.Status, pc.Endorsements)
	changed := local.VerificationStatus != status

	updated := *local
	updated.VerificationStatus = status
	updated.Tier = tier
	if err := s.mirror.UpsertCustomer(ctx, updated); err != nil {
		return nil, fmt.Errorf("mirror customer: %w", err)
	}

	if changed {
		s.notifyStatus(ctx, updated.UserID, status)
	}
	return &updated, nil
}

// ManualSync pulls the provider's current customer state on demand, outside
// the webhook path.
func (s *CustomerService) ManualSync(ctx context.Context, userID uuid.UUID) (*models.Customer, error) {
	local, err := requireCustomer(ctx, s.mirror, userID)
	if err != nil {
		return nil, err
	}
	pc, err := s.client.GetCustomer(ctx, local.ProviderCustomerID)
	if err != nil {
		return nil, err
	}
	return s.SyncFromProvider(ctx, *pc)
}

func (s *CustomerService) notifyStatus(ctx context.Context, userID uuid.UUID, status models.VerificationStatus) {
	input := NotificationInput{
		UserID:   userID,
		Category: models.CategoryAccount,
		Priority: models.PriorityHigh,
	}
	switch status {
	case models.VerificationApproved:
		input.Type = "kyc_approved"
		input.Title = "Verification approved"
		input.Body = "Your identity has been verified. You can now move funds."
	case models.VerificationRejected:
		input.Type = "kyc_rejected"
		input.Title = "Verification rejected"
		input.Body = "We could not verify your identity. Contact support for next steps."
		input.Priority = models.PriorityUrgent
	case models.VerificationUnderReview:
		input.Type = "kyc_under_review"
		input.Title = "Verification under review"
		input.Body = "Your documents are being reviewed. We will notify you when done."
		input.Priority = models.PriorityNormal
	case models.VerificationPending:
		input.Type = "kyc_pending"
		input.Title = "Verification pending"
		input.Body = "More information is needed to finish verifying your identity."
		input.Priority = models.PriorityNormal
	default:
		return
	}
	s.notifier.Notify(ctx, input)
}
