package storage

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

type Memory struct {
	values *xsync.MapOf[string, string]
}

func NewMemory() *Memory {
	return &Memory{
		values: xsync.NewMapOf[string, string](),
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := m.values.Load(key)
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.values.Store(key, value)
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.values.Delete(key)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.values.Clear()
	return nil
}

func (m *Memory) Close() error {
	return nil
}
