package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/domain/market"
	"yfmcp/internal/errs"
	"yfmcp/internal/ports"
)

// FetchFunc performs the upstream read for one operation. It must not have
// side effects: concurrent misses may call it more than once.
type FetchFunc func(ctx context.Context, params map[string]any) (any, error)

// Tool binds a catalog operation to its input prototype and fetch function.
type Tool struct {
	Operation market.Operation
	Input     market.Input
	Fetch     FetchFunc
}

// Result describes how Execute produced its value.
type Result struct {
	Value  any
	Cached bool
	Key    string
	TTL    time.Duration
	// CacheWarning is set when the fresh value could not be written to the
	// cache. The value itself is still valid.
	CacheWarning error
}

type Dispatcher struct {
	store   ports.CacheStore
	policy  *Policy
	metrics *Metrics
	group   singleflight.Group
}

// NewDispatcher wires the caching policy to a store. store may be nil, in
// which case every call goes straight to the fetch function.
func NewDispatcher(store ports.CacheStore, policy *Policy, metrics *Metrics) *Dispatcher {
	if policy == nil {
		policy = NewPolicy(nil)
	}
	return &Dispatcher{
		store:   store,
		policy:  policy,
		metrics: metrics,
	}
}

func (d *Dispatcher) Policy() *Policy {
	return d.policy
}

// Execute returns the cached value for (name, params) or fetches and stores
// a fresh one. Cache hits are decoded with json.Number for numbers.
func (d *Dispatcher) Execute(ctx context.Context, name string, params map[string]any, fetch FetchFunc) (any, error) {
	result, err := d.ExecuteResult(ctx, name, params, fetch)
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

func (d *Dispatcher) ExecuteResult(ctx context.Context, name string, params map[string]any, fetch FetchFunc) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("context is required")
	}
	if fetch == nil {
		return Result{}, errs.Wrapf(market.ErrOperationDisabled, "operation %q", name)
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.dispatch"), slog.String("operation", name))

	if d.store == nil || !d.policy.IsCacheable(name) {
		d.metrics.lookup(name, lookupBypass)
		value, err := d.fetch(logCtx, name, params, fetch)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: value}, nil
	}

	key, err := d.policy.ResolveKey(name, params)
	if err != nil {
		return Result{}, err
	}

	cached, found, err := d.store.Get(logCtx, key)
	if err == nil && found {
		value, decodeErr := decodeCached(cached)
		if decodeErr == nil {
			d.metrics.lookup(name, lookupHit)
			logging.Info(logCtx, "cache hit", slog.String("key", key))
			return Result{Value: value, Cached: true, Key: key}, nil
		}
		err = decodeErr
	}
	if err != nil {
		d.metrics.lookup(name, lookupError)
		logging.Warn(logCtx, "cache lookup failed, treating as miss",
			slog.String("key", key),
			slog.Any("err", errs.Loggable(err)),
		)
	} else {
		d.metrics.lookup(name, lookupMiss)
	}

	// The shared fetch is detached from the caller that started it. Every
	// caller stops waiting when its own ctx ends.
	sharedCtx := context.WithoutCancel(logCtx)
	ttl := d.policy.TTL(name)
	ch := d.group.DoChan(key, func() (any, error) {
		value, err := d.fetch(sharedCtx, name, params, fetch)
		if err != nil {
			return nil, err
		}

		result := Result{Value: value, Key: key, TTL: ttl}
		if err := d.store.Set(sharedCtx, key, value, ttl); err != nil {
			if market.KindOf(err) == market.KindSerialization {
				return nil, err
			}
			d.metrics.storeFailed(name)
			logging.Warn(sharedCtx, "cache write failed, returning fresh result",
				slog.String("key", key),
				slog.Any("err", errs.Loggable(err)),
			)
			result.CacheWarning = err
			return result, nil
		}

		logging.Info(sharedCtx, "cached result",
			slog.String("key", key),
			slog.String("cache_class", d.policy.CacheClass(name)),
			slog.Duration("ttl", ttl),
		)
		return result, nil
	})

	select {
	case <-ctx.Done():
		return Result{}, errs.Wrap(ctx.Err(), "wait for fetch")
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

func (d *Dispatcher) fetch(ctx context.Context, name string, params map[string]any, fetch FetchFunc) (any, error) {
	started := time.Now()
	value, err := fetch(ctx, params)
	d.metrics.observeFetch(name, time.Since(started).Seconds())
	if err != nil {
		d.metrics.fetchFailed(name, market.KindOf(err).String())
		return nil, err
	}
	return value, nil
}

func decodeCached(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, market.Serialization(errs.Wrap(err, "decode cached value"))
	}
	return value, nil
}
