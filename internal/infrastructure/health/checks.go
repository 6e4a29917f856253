package health

import (
	"context"
	"fmt"
	"time"
)

// GenericCheck adapts a function to Check.
type GenericCheck struct {
	name    string
	checkFn func(context.Context) error
}

// NewGenericCheck creates a new generic health check.
func NewGenericCheck(name string, checkFn func(context.Context) error) *GenericCheck {
	return &GenericCheck{
		name:    name,
		checkFn: checkFn,
	}
}

// Name returns the check name.
func (gc *GenericCheck) Name() string {
	return gc.name
}

// Check executes the check.
func (gc *GenericCheck) Check(ctx context.Context) error {
	if gc.checkFn == nil {
		return fmt.Errorf("check function not set")
	}
	return gc.checkFn(ctx)
}

// NewKafkaCheck wraps a broker ping.
func NewKafkaCheck(ping func(context.Context) error) *GenericCheck {
	return NewGenericCheck("kafka", ping)
}

// NewRedisCheck wraps a cache store ping.
func NewRedisCheck(ping func(context.Context) error) *GenericCheck {
	return NewGenericCheck("redis", ping)
}

// RefreshSource is the view of the resolved filters cache the freshness check needs.
type RefreshSource interface {
	LastRefresh() time.Time
	RefreshInterval() time.Duration
}

// CacheFreshnessCheck fails when the cache missed more than maxMissed refreshes.
type CacheFreshnessCheck struct {
	source    RefreshSource
	maxMissed int
	now       func() time.Time
}

// NewCacheFreshnessCheck creates a freshness check. maxMissed below 1 is raised to 1.
func NewCacheFreshnessCheck(source RefreshSource, maxMissed int) *CacheFreshnessCheck {
	if maxMissed < 1 {
		maxMissed = 1
	}
	return &CacheFreshnessCheck{source: source, maxMissed: maxMissed, now: time.Now}
}

// Name returns the check name.
func (c *CacheFreshnessCheck) Name() string {
	return "cache"
}

// Check verifies the age of the last successful refresh.
func (c *CacheFreshnessCheck) Check(_ context.Context) error {
	last := c.source.LastRefresh()
	if last.IsZero() {
		return fmt.Errorf("resolved filters cache never loaded")
	}

	interval := c.source.RefreshInterval()
	if interval <= 0 {
		return nil
	}

	// one extra interval absorbs a refresh in flight
	limit := time.Duration(c.maxMissed+1) * interval
	if age := c.now().Sub(last); age > limit {
		return fmt.Errorf("resolved filters cache is stale: last refresh %s ago", age.Truncate(time.Second))
	}
	return nil
}
