package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"laundrmate/internal/domain"
	"laundrmate/internal/models"
)

const laundriesCacheKey = "laundrmate:laundries:public"

// ListLaundries returns the public catalogue. It needs no session and is
// served from Redis when a cache is configured.
func (c *Client) ListLaundries(ctx context.Context) ([]models.Laundry, error) {
	var cached []models.Laundry
	if c.readCache(ctx, laundriesCacheKey, &cached) {
		return cached, nil
	}

	var out listEnvelope[models.Laundry]
	if err := c.do(ctx, request{
		op:     "list_laundries",
		method: http.MethodGet,
		path:   "/api/laundries",
	}, &out); err != nil {
		return nil, err
	}
	c.writeCache(ctx, laundriesCacheKey, out.Items)
	return out.Items, nil
}

func (c *Client) ListMyLaundries(ctx context.Context) ([]models.Laundry, error) {
	if err := c.requireOwner("list_my_laundries"); err != nil {
		return nil, err
	}

	var out listEnvelope[models.Laundry]
	if err := c.do(ctx, request{
		op:     "list_my_laundries",
		method: http.MethodGet,
		path:   "/api/laundries/owner/mine",
		auth:   true,
	}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) CreateLaundry(ctx context.Context, in models.LaundryInput) (*models.Laundry, error) {
	if err := c.checkLaundry("create_laundry", &in); err != nil {
		return nil, err
	}

	var out models.Laundry
	if err := c.do(ctx, request{
		op:     "create_laundry",
		method: http.MethodPost,
		path:   "/api/laundries",
		body:   in,
		auth:   true,
	}, &out); err != nil {
		return nil, err
	}
	c.invalidateCache(ctx, laundriesCacheKey)
	return &out, nil
}

func (c *Client) UpdateLaundry(ctx context.Context, id int64, in models.LaundryInput) (*models.Laundry, error) {
	if id <= 0 {
		return nil, domain.Validationf("invalid laundry id %d", id)
	}
	if err := c.checkLaundry("update_laundry", &in); err != nil {
		return nil, err
	}

	var out models.Laundry
	if err := c.do(ctx, request{
		op:     "update_laundry",
		method: http.MethodPut,
		path:   laundryPath(id),
		body:   in,
		auth:   true,
	}, &out); err != nil {
		return nil, err
	}
	c.invalidateCache(ctx, laundriesCacheKey)
	return &out, nil
}

func (c *Client) DeleteLaundry(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.Validationf("invalid laundry id %d", id)
	}
	if err := c.requireOwner("delete_laundry"); err != nil {
		return err
	}
	if err := c.do(ctx, request{
		op:     "delete_laundry",
		method: http.MethodDelete,
		path:   laundryPath(id),
		auth:   true,
	}, nil); err != nil {
		return err
	}
	c.invalidateCache(ctx, laundriesCacheKey)
	return nil
}

func (c *Client) checkLaundry(op string, in *models.LaundryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.Validationf("laundry name is required")
	}
	return c.requireOwner(op)
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil || val == "" {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	c.logger.Debug().Str("key", key).Msg("cache hit")
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *Client) invalidateCache(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, key).Err()
}

func laundryPath(id int64) string {
	return fmt.Sprintf("/api/laundries/%d", id)
}
