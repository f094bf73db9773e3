package yahoo

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

type crumbFetcher func(ctx context.Context) (string, error)

// crumbManager caches the session crumb. Concurrent refreshes share one
// upstream call.
type crumbManager struct {
	fetch crumbFetcher
	group singleflight.Group

	mu    sync.Mutex
	crumb string
}

func newCrumbManager(fetch crumbFetcher) *crumbManager {
	return &crumbManager{fetch: fetch}
}

func (m *crumbManager) get(ctx context.Context) (string, error) {
	if crumb := m.cached(); crumb != "" {
		return crumb, nil
	}

	refreshCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan("crumb", func() (any, error) {
		crumb, err := m.fetch(refreshCtx)
		if err != nil {
			return "", err
		}
		m.mu.Lock()
		m.crumb = crumb
		m.mu.Unlock()
		return crumb, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (m *crumbManager) cached() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.crumb
}

func (m *crumbManager) invalidate() {
	m.mu.Lock()
	m.crumb = ""
	m.mu.Unlock()
}
