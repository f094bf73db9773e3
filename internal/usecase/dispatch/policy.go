package dispatch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"strings"
	"sync"
	"time"

	"yfmcp/internal/domain/market"
)

const fallbackTTLSeconds = 3600

// realtimeOperations always bypass the cache, for reads and writes.
var realtimeOperations = map[string]struct{}{
	market.OpCurrentStockPrice: {},
	market.OpOptionChain:       {},
}

// classKeywords is checked in order; the first keyword found in the
// lower-cased operation name decides the class.
var classKeywords = []struct {
	keywords []string
	class    string
}{
	{keywords: []string{"price", "historical"}, class: market.ClassHistoricalData},
	{keywords: []string{"info"}, class: market.ClassStockInfo},
	{keywords: []string{"financial", "statement"}, class: market.ClassFinancials},
	{keywords: []string{"option"}, class: market.ClassOptions},
	{keywords: []string{"news"}, class: market.ClassNews},
	{keywords: []string{"holder"}, class: market.ClassHolders},
	{keywords: []string{"recommendation"}, class: market.ClassRecommendations},
}

// Policy decides cacheability, key and TTL per operation. It holds no
// persistent state; the TTL taxonomy can be swapped at runtime.
type Policy struct {
	mu   sync.RWMutex
	ttls map[string]int
}

func NewPolicy(ttls map[string]int) *Policy {
	p := &Policy{}
	p.UpdateTTLs(ttls)
	return p
}

// UpdateTTLs replaces the taxonomy. Classes missing from ttls fall back to
// the shipped defaults.
func (p *Policy) UpdateTTLs(ttls map[string]int) {
	merged := market.DefaultTTLSeconds()
	for class, seconds := range ttls {
		merged[strings.ToLower(strings.TrimSpace(class))] = seconds
	}

	p.mu.Lock()
	p.ttls = merged
	p.mu.Unlock()
}

// TTLs returns a copy of the active taxonomy.
func (p *Policy) TTLs() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.ttls)
}

// ResolveKey hashes the operation name together with its parameters.
// encoding/json writes map keys sorted, so argument order never matters.
func (p *Policy) ResolveKey(name string, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	canonical, err := json.Marshal(params)
	if err != nil {
		return "", market.Serialization(err)
	}

	sum := sha256.New()
	sum.Write([]byte(name))
	sum.Write([]byte{':'})
	sum.Write(canonical)
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// ResolveTTLClass maps an operation name to a cache class by keyword.
func (p *Policy) ResolveTTLClass(name string) string {
	lowered := strings.ToLower(name)
	for _, rule := range classKeywords {
		for _, keyword := range rule.keywords {
			if strings.Contains(lowered, keyword) {
				return rule.class
			}
		}
	}
	return market.ClassDefault
}

// CacheClass prefers the class declared in the catalog and only falls back
// to the keyword heuristic for operations the catalog does not know.
func (p *Policy) CacheClass(name string) string {
	if op, ok := market.Lookup(name); ok && op.CacheClass != "" {
		return op.CacheClass
	}
	return p.ResolveTTLClass(name)
}

func (p *Policy) TTL(name string) time.Duration {
	class := p.CacheClass(name)

	p.mu.RLock()
	seconds, ok := p.ttls[class]
	if !ok {
		seconds, ok = p.ttls[market.ClassDefault]
	}
	p.mu.RUnlock()

	if !ok {
		seconds = fallbackTTLSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (p *Policy) IsCacheable(name string) bool {
	if _, realtime := realtimeOperations[name]; realtime {
		return false
	}
	if op, ok := market.Lookup(name); ok {
		return op.Cacheable
	}
	return true
}
