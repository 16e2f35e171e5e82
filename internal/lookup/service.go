// Package lookup is the public read-only invoice query path: customers
// can find their invoices by number, phone or name, with no mutation
// capability.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/vlxd-erp/vlxd-erp/internal/invoices"
)

// ErrQueryTooShort rejects queries that would scan the whole table.
var ErrQueryTooShort = errors.New("lookup: query must be at least 3 characters")

// RepositoryPort abstracts the read-only search.
type RepositoryPort interface {
	Search(ctx context.Context, query string, limit int) ([]invoices.Invoice, error)
}

// Service serves cached public lookups. Concurrent identical queries are
// collapsed to one database hit.
type Service struct {
	repo   RepositoryPort
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewService builds Service. The redis client is optional; without it
// every query goes to the repository.
func NewService(repo RepositoryPort, client *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{repo: repo, client: client, ttl: ttl}
}

// Search finds invoices matching the query against invoice number,
// customer phone or customer name.
func (s *Service) Search(ctx context.Context, query string) ([]invoices.Invoice, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 3 {
		return nil, ErrQueryTooShort
	}

	key := cacheKey(query)
	if s.client != nil {
		payload, err := s.client.Get(ctx, key).Bytes()
		if err == nil {
			var cached []invoices.Invoice
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			return nil, err
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		result, err := s.repo.Search(ctx, query, 20)
		if err != nil {
			return nil, err
		}
		if s.client != nil {
			if raw, err := json.Marshal(result); err == nil {
				_ = s.client.Set(ctx, key, raw, s.ttl).Err()
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]invoices.Invoice), nil
}

func cacheKey(query string) string {
	return fmt.Sprintf("lookup:%s", strings.ToLower(query))
}
