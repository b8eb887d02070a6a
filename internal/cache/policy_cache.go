package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/internal/repository"
)

// PolicyCache decorates a PolicyRepository with a Redis read-through cache.
// Redis failures are logged and the source is used directly, so a cache
// outage never fails an accrual.
type PolicyCache struct {
	source repository.PolicyRepository
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewPolicyCache(source repository.PolicyRepository, client redis.UniversalClient, prefix string, ttl time.Duration) *PolicyCache {
	return &PolicyCache{
		source: source,
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *PolicyCache) key(productCode string) string {
	return c.prefix + "policy:" + productCode
}

func (c *PolicyCache) GetPolicy(ctx context.Context, productCode string) (*domain.ProductPolicy, error) {
	raw, err := c.client.Get(ctx, c.key(productCode)).Bytes()
	switch {
	case err == nil:
		var policy domain.ProductPolicy
		if jsonErr := json.Unmarshal(raw, &policy); jsonErr == nil {
			return &policy, nil
		}
		log.Warn().Str("product_code", productCode).Msg("discarding undecodable cached policy")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Str("product_code", productCode).Msg("policy cache read failed, using source")
	}

	policy, err := c.source.GetPolicy(ctx, productCode)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(policy); err == nil {
		if err := c.client.Set(ctx, c.key(productCode), raw, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("product_code", productCode).Msg("policy cache write failed")
		}
	}
	return policy, nil
}

func (c *PolicyCache) UpsertPolicy(ctx context.Context, policy *domain.ProductPolicy) error {
	if err := c.source.UpsertPolicy(ctx, policy); err != nil {
		return err
	}
	if err := c.client.Del(ctx, c.key(policy.ProductCode)).Err(); err != nil {
		log.Warn().Err(err).Str("product_code", policy.ProductCode).Msg("policy cache invalidation failed")
	}
	return nil
}
