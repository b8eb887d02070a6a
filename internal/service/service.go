package service

import (
	"context"
	"time"

	"github.com/segyhp/repayment-ledger/internal/domain"
	customErrors "github.com/segyhp/repayment-ledger/pkg/errors"
)

// Clock returns the current instant.
type Clock func() time.Time

const (
	defaultMaxVersionRetries = 3
	defaultCallTimeout       = 5 * time.Second
	defaultLockWait          = 5 * time.Second
)

// callCtx bounds a single storage or configuration call.
func callCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func dbError(err error) error {
	return customErrors.WrapDatabaseError(err)
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return domain.ActorSystem
	}
	return actor
}
