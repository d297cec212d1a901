package mocks

import (
	"context"

	"github.com/brettbedarf/restfs"
	"github.com/stretchr/testify/mock"
)

// MockRemoteClient implements restfs.RemoteClient for testing across packages
type MockRemoteClient struct {
	mock.Mock
}

func (m *MockRemoteClient) ListContainers(ctx context.Context) ([]restfs.RemoteItem, error) {
	return m.list(ctx, m.Called(ctx))
}

func (m *MockRemoteClient) ListObjects(ctx context.Context) ([]restfs.RemoteItem, error) {
	return m.list(ctx, m.Called(ctx))
}

func (m *MockRemoteClient) list(ctx context.Context, args mock.Arguments) ([]restfs.RemoteItem, error) {
	// Handle function return types (for blocking or ordering tests)
	if fn, ok := args.Get(0).(func(context.Context) []restfs.RemoteItem); ok {
		return fn(ctx), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]restfs.RemoteItem), args.Error(1)
}

func (m *MockRemoteClient) UpdateObject(ctx context.Context, id string, content []byte) error {
	args := m.Called(ctx, id, content)
	return args.Error(0)
}

var _ restfs.RemoteClient = (*MockRemoteClient)(nil)

// MockClientProvider implements restfs.ClientProvider for testing across packages
type MockClientProvider struct {
	mock.Mock
}

func (m *MockClientProvider) NewClient(creds restfs.Credentials) (restfs.RemoteClient, error) {
	args := m.Called(creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(restfs.RemoteClient), args.Error(1)
}

var _ restfs.ClientProvider = (*MockClientProvider)(nil)
