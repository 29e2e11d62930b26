// Package client holds HTTP clients for external collaborators. The
// engine only depends on the account/branch directory service; all
// calls go through retry and a circuit breaker.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lumenpos/finengine/internal/domain"
	"github.com/lumenpos/finengine/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// DirectoryClient fetches bank account metadata from the external
// account/branch directory service.
type DirectoryClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewDirectoryClient creates a new DirectoryClient.
func NewDirectoryClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *DirectoryClient {
	return &DirectoryClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// GetAccount fetches one account with retry, circuit breaker and tracing.
func (c *DirectoryClient) GetAccount(ctx context.Context, accountID string) (*domain.BankAccount, error) {
	ctx, span := tracer.Start(ctx, "DirectoryClient.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var account domain.BankAccount
	url := fmt.Sprintf("%s/v1/accounts/%s", c.baseURL, accountID)
	if err := c.getJSON(ctx, url, "account", accountID, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetPrimaryAccount fetches the account flagged primary.
func (c *DirectoryClient) GetPrimaryAccount(ctx context.Context) (*domain.BankAccount, error) {
	ctx, span := tracer.Start(ctx, "DirectoryClient.GetPrimaryAccount")
	defer span.End()

	var account domain.BankAccount
	url := fmt.Sprintf("%s/v1/accounts/primary", c.baseURL)
	if err := c.getJSON(ctx, url, "primary account", "primary", &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListAccounts fetches all known accounts.
func (c *DirectoryClient) ListAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	ctx, span := tracer.Start(ctx, "DirectoryClient.ListAccounts")
	defer span.End()

	var payload struct {
		Accounts []domain.BankAccount `json:"accounts"`
	}
	url := fmt.Sprintf("%s/v1/accounts", c.baseURL)
	if err := c.getJSON(ctx, url, "accounts", "", &payload); err != nil {
		return nil, err
	}
	return payload.Accounts, nil
}

// getJSON runs one GET through the breaker and retry policy, decoding
// into out. NotFound passes through untouched so callers can map it to
// a 404.
func (c *DirectoryClient) getJSON(ctx context.Context, url, resource, id string, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return &domain.ErrNotFound{Resource: resource, ID: id}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("directory API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(out)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return nil, nil
	})
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return notFound
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: "directory"}
		}
		return &domain.ErrExternalService{Service: "directory", Err: err}
	}
	return nil
}
