package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"ops_reporting_backend/platform/logger"

	"golang.org/x/sync/singleflight"
)

// defaultComputeTimeout bounds a shared computation once it no longer follows
// the request that started it.
const defaultComputeTimeout = 2 * time.Minute

// Reports fronts report computations with a Store. Concurrent misses for the
// same key share one computation. A nil *Reports or nil store computes every time.
type Reports struct {
	store          Store
	log            *logger.Logger
	group          singleflight.Group
	computeTimeout time.Duration
}

// NewReports wraps store. store may be nil to disable caching.
func NewReports(store Store, log *logger.Logger) *Reports {
	return &Reports{store: store, log: log, computeTimeout: defaultComputeTimeout}
}

// Enabled reports whether a backend is configured.
func (r *Reports) Enabled() bool {
	return r != nil && r.store != nil
}

// Key builds a stable cache key from an operation name and its query values.
// Parameter and value order do not matter. Values keep their case because
// filters such as sector match it exactly.
func Key(op string, params url.Values) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(op)
	for _, name := range names {
		values := append([]string(nil), params[name]...)
		sort.Strings(values)
		for _, v := range values {
			b.WriteString("|")
			b.WriteString(name)
			b.WriteString("=")
			b.WriteString(strings.TrimSpace(v))
		}
	}
	return b.String()
}

// Fetch returns the cached value of key or computes, stores and returns it.
// Cache failures are logged and never fail the request.
func Fetch[T any](ctx context.Context, r *Reports, key string, years []int, compute func(context.Context) (T, error)) (T, bool, error) {
	if !r.Enabled() {
		v, err := compute(ctx)
		return v, false, err
	}

	if raw, ok, err := r.store.Get(ctx, key); err != nil {
		r.warn(ctx, "cache read failed", key, err)
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, true, nil
		}
		r.warn(ctx, "cache entry undecodable", key, err)
	}

	// The shared computation is detached from the first caller: one client
	// going away must not fail the others waiting on the same key.
	ch := r.group.DoChan(key, func() (any, error) {
		timeout := r.computeTimeout
		if timeout <= 0 {
			timeout = defaultComputeTimeout
		}
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		fresh, err := compute(sharedCtx)
		if err != nil {
			return fresh, err
		}
		raw, err := json.Marshal(fresh)
		if err != nil {
			r.warn(sharedCtx, "cache encode failed", key, err)
			return fresh, nil
		}
		if err := r.store.Set(sharedCtx, key, years, raw); err != nil {
			r.warn(sharedCtx, "cache write failed", key, err)
		}
		return fresh, nil
	})

	var v any
	select {
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, false, res.Err
		}
		v = res.Val
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, false, fmt.Errorf("cache: unexpected value type %T", v)
	}
	return typed, false, nil
}

// InvalidateYear drops every report covering year. Year 0 drops everything.
func (r *Reports) InvalidateYear(ctx context.Context, year int) (int64, error) {
	if !r.Enabled() {
		return 0, nil
	}
	if year == 0 {
		return r.store.InvalidateAll(ctx)
	}
	return r.store.InvalidateYear(ctx, year)
}

func (r *Reports) warn(ctx context.Context, msg, key string, err error) {
	if r.log == nil {
		return
	}
	r.log.WithContext(ctx).Warn(msg, "key", key, "error", err)
}

// YearsBetween lists every year in [from, to].
func YearsBetween(from, to int) []int {
	if to < from {
		to = from
	}
	years := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		years = append(years, y)
	}
	return years
}
