// Package restfs contains core domain types and interfaces for the RestFS filesystem
package restfs

import "context"

// RemoteItem is a single entry of a remote collection listing. Containers only
// carry FullPath; objects also carry their content.
type RemoteItem struct {
	FullPath string `json:"fullPath" yaml:"fullPath"`
	Content  string `json:"apiAnonymous,omitempty" yaml:"apiAnonymous,omitempty"`
}

// ItemList is the envelope the remote API wraps every collection listing in
type ItemList struct {
	Items []RemoteItem `json:"items" yaml:"items"`
}

// RemoteClient performs the three calls the filesystem needs from the remote
// management API. A listing error is request-level and fails a whole sync.
type RemoteClient interface {
	// ListContainers returns every container known to the remote in its order
	ListContainers(ctx context.Context) ([]RemoteItem, error)

	// ListObjects returns every object with its content
	ListObjects(ctx context.Context) ([]RemoteItem, error)

	// UpdateObject replaces the content of the object addressed by id
	UpdateObject(ctx context.Context, id string, content []byte) error
}

// ClientProvider is a factory for concrete [RemoteClient] implementations.
// Implementations own transport resources (connection pools, fixtures) for
// the clients they hand out.
type ClientProvider interface {
	NewClient(creds Credentials) (RemoteClient, error)
}

// ClientProviderFunc adapts a plain function to [ClientProvider]
type ClientProviderFunc func(creds Credentials) (RemoteClient, error)

func (f ClientProviderFunc) NewClient(creds Credentials) (RemoteClient, error) {
	return f(creds)
}
