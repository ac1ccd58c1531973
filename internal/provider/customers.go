package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/meridianpay/custodyops/internal/models"
)

// CreateCustomerRequest carries the fields the provider needs to open a
// compliance case for a new customer.
type CreateCustomerRequest struct {
	Type      string `json:"type"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (c *Client) CreateCustomer(ctx context.Context, req CreateCustomerRequest, opts ...CallOption) (*models.ProviderCustomer, error) {
	var out models.ProviderCustomer
	if err := c.do(ctx, http.MethodPost, "/customers", req, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCustomer(ctx context.Context, customerID string) (*models.ProviderCustomer, error) {
	var out models.ProviderCustomer
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/customers/%s", customerID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateKYCLinkRequest opens a hosted KYC/TOS flow for a prospective customer.
type CreateKYCLinkRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Type     string `json:"type"`
}

func (c *Client) CreateKYCLink(ctx context.Context, req CreateKYCLinkRequest, opts ...CallOption) (*models.ProviderKYCLink, error) {
	var out models.ProviderKYCLink
	if err := c.do(ctx, http.MethodPost, "/kyc_links", req, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetKYCLink(ctx context.Context, linkID string) (*models.ProviderKYCLink, error) {
	var out models.ProviderKYCLink
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/kyc_links/%s", linkID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
