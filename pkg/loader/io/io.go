package io

import (
	"context"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
)

// IOArtifactLoader reads graph artifacts from the local filesystem with
// caching. Concurrent requests for the same key collapse into one read.
type IOArtifactLoader struct {
	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewIOArtifactLoader creates a filesystem-based artifact loader.
func NewIOArtifactLoader() *IOArtifactLoader {
	return &IOArtifactLoader{
		cache: make(map[string][]byte),
	}
}

// GetArtifact reads the artifact at the given path. Results are cached for
// the lifetime of the loader.
func (l *IOArtifactLoader) GetArtifact(ctx context.Context, key string) ([]byte, error) {
	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(key)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[key] = data
		l.cacheMu.Unlock()

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
