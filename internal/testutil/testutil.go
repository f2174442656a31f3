package testutil

import (
	"context"

	"marketdata/internal/fetcher"
	"marketdata/internal/model"
)

// MockAdapter is a mock implementation of the Adapter interface for testing
type MockAdapter struct {
	FetchFunc func(ctx context.Context, key model.RequestKey) (*model.Record, error)
	NameFunc  func() string
}

// Fetch implements the Adapter interface
func (m *MockAdapter) Fetch(ctx context.Context, key model.RequestKey) (*model.Record, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, key)
	}
	return &model.Record{}, nil
}

// Name implements the Adapter interface
func (m *MockAdapter) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock:adapter"
}

// NewMockAdapter creates a simple mock adapter with predefined values
func NewMockAdapter(name string, rec *model.Record, err error) fetcher.Adapter {
	return &MockAdapter{
		FetchFunc: func(ctx context.Context, key model.RequestKey) (*model.Record, error) {
			return rec, err
		},
		NameFunc: func() string {
			return name
		},
	}
}
