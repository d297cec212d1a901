package adapters

import (
	"fmt"
	"sync"
	"testing"

	"github.com/brettbedarf/restfs"
	"github.com/brettbedarf/restfs/config"
	"github.com/brettbedarf/restfs/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_SingleProvider(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	mockProvider := &mocks.MockClientProvider{}

	r.Register(RESTClientType, mockProvider)
	provider, err := r.GetProvider(RESTClientType)

	require.NoError(t, err)
	assert.Equal(t, mockProvider, provider)
}

func TestRegister_DuplicateProvider(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	mockProvider1 := &mocks.MockClientProvider{}
	mockProvider2 := &mocks.MockClientProvider{}

	r.Register("test", mockProvider1)
	r.Register("test", mockProvider2)

	provider, err := r.GetProvider("test")
	require.NoError(t, err)
	assert.Same(t, mockProvider1, provider)
}

func TestRegister_Concurrent(t *testing.T) {
	t.Parallel()
	var wg sync.WaitGroup
	r := NewRegistry()

	for i := range 100 {
		wg.Go(func() {
			clientType := fmt.Sprintf("test%d", i)
			mockProvider := &mocks.MockClientProvider{}
			r.Register(clientType, mockProvider)
			provider, err := r.GetProvider(clientType)
			assert.NoError(t, err)
			assert.Same(t, mockProvider, provider)
		})
	}
	wg.Wait()
}

func TestGetProvider_NonExistentProvider(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.GetProvider("nonexistent")
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	creds := restfs.Credentials{Host: "h", Username: "u", Password: "p"}

	t.Run("delegates to provider", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		mockProvider := &mocks.MockClientProvider{}
		mockClient := &mocks.MockRemoteClient{}
		mockProvider.On("NewClient", creds).Return(mockClient, nil)
		r.Register("test", mockProvider)

		c, err := r.NewClient("test", creds)
		require.NoError(t, err)
		assert.Same(t, mockClient, c)
		mockProvider.AssertExpectations(t)
	})

	t.Run("provider error", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		mockProvider := &mocks.MockClientProvider{}
		expErr := fmt.Errorf("test error")
		mockProvider.On("NewClient", creds).Return(nil, expErr)
		r.Register("test", mockProvider)

		_, err := r.NewClient("test", creds)
		assert.Equal(t, expErr, err)
	})

	t.Run("unregistered", func(t *testing.T) {
		t.Parallel()
		_, err := NewRegistry().NewClient("foo", creds)
		assert.Error(t, err)
	})
}

func TestRegisterBuiltins(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefaultConfig()

	t.Run("all", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		RegisterBuiltins(r, cfg)

		p, err := r.GetProvider(RESTClientType)
		require.NoError(t, err)
		assert.IsType(t, &RESTProvider{}, p)
		p, err = r.GetProvider(SnapshotClientType)
		require.NoError(t, err)
		assert.IsType(t, &SnapshotProvider{}, p)
	})

	t.Run("selected", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		RegisterBuiltins(r, cfg, SnapshotClientType)

		_, err := r.GetProvider(RESTClientType)
		assert.Error(t, err)
		_, err = r.GetProvider(SnapshotClientType)
		assert.NoError(t, err)
	})
}
