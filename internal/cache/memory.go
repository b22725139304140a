package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory локальный кеш с вытеснением LRU. Подходит только для одного инстанса:
// инвалидация не видна другим процессам.
type Memory struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemory создает кеш на size записей. maxTTL ограничивает жизнь любой записи
// сверху, даже если при Set передан больший срок.
func NewMemory(size int, maxTTL time.Duration) *Memory {
	return &Memory{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		now: time.Now,
	}
}

// Get читает значение по ключу в result.
func (m *Memory) Get(_ context.Context, key string, result any) (bool, error) {
	const op = "cache.Memory.Get"
	e, ok := m.lru.Get(key)
	if !ok {
		return false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.lru.Remove(key)
		return false, nil
	}
	if err := json.Unmarshal(e.data, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение. Нулевой expiration означает срок maxTTL.
func (m *Memory) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Memory.Set"
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	e := memoryEntry{data: data}
	if expiration > 0 {
		e.expiresAt = m.now().Add(expiration)
	}
	m.lru.Add(key, e)
	return nil
}

// Invalidate удаляет ключ.
func (m *Memory) Invalidate(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// InvalidatePattern удаляет ключи, подходящие под шаблон с '*'.
func (m *Memory) InvalidatePattern(_ context.Context, pattern string) (int, error) {
	removed := 0
	for _, key := range m.lru.Keys() {
		if wildcard.Match(pattern, key) && m.lru.Remove(key) {
			removed++
		}
	}
	return removed, nil
}
