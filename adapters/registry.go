package adapters

import (
	"fmt"

	"github.com/brettbedarf/restfs"
	"github.com/puzpuzpuz/xsync/v4"
)

// Registry maps a client type key (config remote_type) to the provider that
// builds its clients.
type Registry struct {
	providers *xsync.Map[string, restfs.ClientProvider]
}

func NewRegistry() *Registry {
	return &Registry{providers: xsync.NewMap[string, restfs.ClientProvider]()}
}

// Register ties a provider to a type key. The first registration for a key
// wins; later ones are ignored.
func (r *Registry) Register(clientType string, provider restfs.ClientProvider) {
	r.providers.LoadOrStore(clientType, provider)
}

// GetProvider returns the provider registered for clientType
func (r *Registry) GetProvider(clientType string) (restfs.ClientProvider, error) {
	p, ok := r.providers.Load(clientType)
	if !ok {
		return nil, fmt.Errorf("no client provider for %q", clientType)
	}
	return p, nil
}

// NewClient builds a client from the provider registered for clientType
func (r *Registry) NewClient(clientType string, creds restfs.Credentials) (restfs.RemoteClient, error) {
	p, err := r.GetProvider(clientType)
	if err != nil {
		return nil, err
	}
	return p.NewClient(creds)
}
