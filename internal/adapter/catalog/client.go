// Package catalog is the HTTP client for the remote product service.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	domain "github.com/shashank-materialplus/order-api/internal/entity"
	"github.com/shashank-materialplus/order-api/internal/logging"
	"github.com/shashank-materialplus/order-api/internal/usecase"
)

// envelope is the product service's response wrapper.
type envelope struct {
	Time       string          `json:"time"`
	HTTPStatus string          `json:"httpStatus"`
	IsSuccess  bool            `json:"isSuccess"`
	Response   json.RawMessage `json:"response"`
}

type productDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unitPrice"` // minor units
	AvailableStock int    `json:"availableStock"`
}

type purchaseDTO struct {
	Quantity int `json:"quantity"`
}

type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   uint64        // snapshot reads only
	RetryBackoff time.Duration // initial interval
}

// Client calls the product service. Snapshot reads get a bounded
// exponential-backoff retry; DecrementStock is sent exactly once, because
// a blind retry could decrement twice.
type Client struct {
	cfg Config
	hc  *http.Client
	log *slog.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
		log: logging.New("catalog"),
	}
}

func (c *Client) FetchSnapshot(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	var snap *domain.ProductSnapshot

	op := func() error {
		s, err := c.fetchOnce(ctx, productID)
		if err != nil {
			return err
		}
		snap = s
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBackoff
	if err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)); err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *Client) fetchOnce(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/products/%s", c.cfg.BaseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, usecase.ErrProductLookup(productID, err) // retryable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(usecase.ErrProductNotFound(productID))
	case resp.StatusCode >= 500:
		return nil, usecase.ErrProductLookup(productID,
			fmt.Errorf("catalog returned %d", resp.StatusCode)) // retryable
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(usecase.ErrProductLookup(productID,
			fmt.Errorf("catalog returned %d", resp.StatusCode)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, usecase.ErrProductLookup(productID, err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, backoff.Permanent(usecase.ErrProductLookup(productID, err))
	}
	if !env.IsSuccess || len(env.Response) == 0 {
		return nil, backoff.Permanent(usecase.ErrProductLookup(productID,
			fmt.Errorf("catalog response not successful")))
	}
	var dto productDTO
	if err := json.Unmarshal(env.Response, &dto); err != nil {
		return nil, backoff.Permanent(usecase.ErrProductLookup(productID, err))
	}

	return &domain.ProductSnapshot{
		ID:             dto.ID,
		Name:           dto.Name,
		UnitPriceCents: dto.UnitPriceCents,
		AvailableStock: dto.AvailableStock,
	}, nil
}

// DecrementStock requests one atomic stock decrement. One attempt only.
func (c *Client) DecrementStock(ctx context.Context, productID string, quantity int) error {
	payload, err := json.Marshal(purchaseDTO{Quantity: quantity})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/v1/products/%s/purchase", c.cfg.BaseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("decrement stock for %s: %w", productID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("decrement stock for %s: catalog returned %d", productID, resp.StatusCode)
	}
	c.log.DebugContext(ctx, "stock decremented", "product_id", productID, "quantity", quantity)
	return nil
}

var _ usecase.CatalogGateway = (*Client)(nil)
