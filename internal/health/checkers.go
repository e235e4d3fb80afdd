package health

import (
	"context"
	"fmt"
	"time"

	"github.com/heygen-community/heygen-streaming/internal/heygen"
	"github.com/heygen-community/heygen-streaming/internal/session/store"
)

// AvatarLister is the slice of the upstream client used for probing.
type AvatarLister interface {
	ListAvatars(ctx context.Context) ([]heygen.AvatarInfo, error)
}

// UpstreamChecker probes the HeyGen API with a cheap catalog read.
type UpstreamChecker struct {
	Client  AvatarLister
	Timeout time.Duration
}

func (c *UpstreamChecker) Name() string { return "heygen_upstream" }

func (c *UpstreamChecker) Check(ctx context.Context) CheckResult {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	avatars, err := c.Client.ListAvatars(ctx)
	if err != nil {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d avatars available", len(avatars)),
	}
}

// StoreChecker verifies the session store answers queries.
type StoreChecker struct {
	Store store.Store
}

func (c *StoreChecker) Name() string { return "session_store" }

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	records, err := c.Store.List(ctx)
	if err != nil {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d tracked sessions", len(records)),
	}
}
