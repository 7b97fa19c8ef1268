package store

import (
	"context"
	"encoding/json"
	"sync"
)

const watchBuffer = 32

// Memory is an in-process Store for tests and single-process runs. Watchers
// get buffered channels; a watcher that falls more than watchBuffer snapshots
// behind loses the oldest ones rather than blocking writers.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	subs   map[string]map[int64]*memSub
	nextID int64
	closed bool
}

type memSub struct {
	ch   chan []byte
	once sync.Once
}

func (s *memSub) close() {
	s.once.Do(func() { close(s.ch) })
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string][]byte),
		subs: make(map[string]map[int64]*memSub),
	}
}

func (m *Memory) Get(_ context.Context, path string, out any) error {
	m.mu.RLock()
	raw, ok := m.docs[path]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

func (m *Memory) Set(_ context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.publish(path, raw)
}

func (m *Memory) Update(_ context.Context, path string, fields map[string]any) error {
	m.mu.RLock()
	raw := m.docs[path]
	m.mu.RUnlock()

	merged, err := mergeInto(raw, fields)
	if err != nil {
		return err
	}
	return m.publish(path, merged)
}

func (m *Memory) publish(path string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.docs[path] = raw
	for _, sub := range m.subs[path] {
		select {
		case sub.ch <- raw:
		default:
			// Drop the oldest snapshot so the watcher converges on the latest.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- raw:
			default:
			}
		}
	}
	return nil
}

func (m *Memory) Watch(_ context.Context, path string) (<-chan []byte, func(), error) {
	sub := &memSub{ch: make(chan []byte, watchBuffer)}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, ErrClosed
	}
	id := m.nextID
	m.nextID++
	if m.subs[path] == nil {
		m.subs[path] = make(map[int64]*memSub)
	}
	m.subs[path][id] = sub
	if raw, ok := m.docs[path]; ok {
		sub.ch <- raw
	}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		delete(m.subs[path], id)
		m.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, watchers := range m.subs {
		for _, sub := range watchers {
			sub.close()
		}
	}
	m.subs = make(map[string]map[int64]*memSub)
	return nil
}
