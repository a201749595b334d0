// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package detail

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agaheman/ReqRepTransformation/message"
	"github.com/agaheman/ReqRepTransformation/transformapi"
)

// Provider maps an incoming request context to its transformation plan.
// The plan covers both sides of the exchange, so the host resolves it once
// per request and reuses it for the response leg.
type Provider interface {
	DetailFor(ctx context.Context, msg *message.Context) (*Detail, error)
}

// RowSource supplies the current route rules. Implementations may read from
// configuration, a database, or anything else that can produce the row
// shape; the caching provider consults the source only on cache misses.
type RowSource interface {
	Rows(ctx context.Context) ([]transformapi.RouteRule, error)
}

// StaticRows is a RowSource over a fixed rule list.
type StaticRows []transformapi.RouteRule

// Rows implements [RowSource.Rows].
func (s StaticRows) Rows(context.Context) ([]transformapi.RouteRule, error) {
	return s, nil
}

// MatchRoute returns the rule matching the method and path, or nil. An
// exact method match beats a wildcard regardless of prefix length; within
// the same method class the longest path prefix wins, earlier rules
// breaking ties.
func MatchRoute(rules []transformapi.RouteRule, method, path string) *transformapi.RouteRule {
	var best *transformapi.RouteRule
	bestLen := -1
	bestExact := false
	for i := range rules {
		r := &rules[i]
		exact := strings.EqualFold(r.Method, method)
		if !exact && r.Method != transformapi.MethodWildcard {
			continue
		}
		if !strings.HasPrefix(path, r.Path) {
			continue
		}
		switch {
		case exact && !bestExact:
		case exact == bestExact && len(r.Path) > bestLen:
		default:
			continue
		}
		best, bestLen, bestExact = r, len(r.Path), exact
	}
	return best
}

type cacheEntry struct {
	detail    *Detail
	expiresAt time.Time
}

// CachingProvider resolves plans through a Builder and caches them keyed on
// (method, normalized path). Entries expire after the TTL; in sliding mode
// every cache hit pushes the expiry forward, so only idle routes fall out.
type CachingProvider struct {
	source  RowSource
	builder *Builder
	ttl     time.Duration
	sliding bool

	// nowFn stands in for time.Now in tests.
	nowFn func() time.Time

	mu    sync.RWMutex
	cache map[string]*cacheEntry
}

// NewCachingProvider constructs a provider over the given source and
// builder. A zero ttl disables expiry; entries then live until Invalidate.
func NewCachingProvider(source RowSource, builder *Builder, ttl time.Duration, sliding bool) *CachingProvider {
	return &CachingProvider{
		source:  source,
		builder: builder,
		ttl:     ttl,
		sliding: sliding,
		nowFn:   time.Now,
		cache:   make(map[string]*cacheEntry),
	}
}

// DetailFor implements [Provider.DetailFor].
//
// On a miss the provider loads the current rows, matches the route, builds
// the plan and caches it under the normalized key. Unmatched routes cache
// the Empty plan so repeated pass-through traffic never re-reads the source.
func (p *CachingProvider) DetailFor(ctx context.Context, msg *message.Context) (*Detail, error) {
	key := CacheKey(msg.Method(), msg.Address().Path())
	if d, ok := p.lookup(key); ok {
		return d, nil
	}

	rows, err := p.source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load route rules: %w", err)
	}
	d := Empty
	if rule := MatchRoute(rows, msg.Method(), msg.Address().Path()); rule != nil {
		d = p.builder.Build(rule)
	}
	p.store(key, d)
	return d, nil
}

// Invalidate drops every cached plan. The next resolution per route goes
// back to the row source.
func (p *CachingProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.cache)
}

func (p *CachingProvider) lookup(key string) (*Detail, bool) {
	p.mu.RLock()
	e, ok := p.cache[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := p.nowFn()
	if p.ttl > 0 && now.After(e.expiresAt) {
		p.mu.Lock()
		// Recheck: another goroutine may have refreshed the entry.
		if cur, still := p.cache[key]; still && cur == e {
			delete(p.cache, key)
		}
		p.mu.Unlock()
		return nil, false
	}
	if p.ttl > 0 && p.sliding {
		p.mu.Lock()
		e.expiresAt = now.Add(p.ttl)
		p.mu.Unlock()
	}
	return e.detail, true
}

func (p *CachingProvider) store(key string, d *Detail) {
	e := &cacheEntry{detail: d}
	if p.ttl > 0 {
		e.expiresAt = p.nowFn().Add(p.ttl)
	}
	p.mu.Lock()
	p.cache[key] = e
	p.mu.Unlock()
}
