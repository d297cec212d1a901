package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/brettbedarf/restfs"
	"github.com/brettbedarf/restfs/internal/util"
	"gopkg.in/yaml.v3"
)

// Snapshot is an offline copy of the remote's two collections
type Snapshot struct {
	Containers []restfs.RemoteItem `yaml:"containers" json:"containers"`
	Objects    []restfs.RemoteItem `yaml:"objects" json:"objects"`
}

// LoadSnapshot reads a YAML (.yaml, .yml) or JSON (.json) fixture file
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &snap)
	case ".json":
		err = json.Unmarshal(data, &snap)
	default:
		return nil, fmt.Errorf("unknown snapshot file extension: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// SnapshotProvider serves clients backed by one shared in-memory snapshot.
// Updates change the snapshot for every client but are never written back
// to the file.
type SnapshotProvider struct {
	path      string
	separator string

	mu   sync.RWMutex // guards snap
	snap *Snapshot    // loaded on first NewClient when path is set
}

// NewSnapshotProvider serves the fixture at path, loading it lazily
func NewSnapshotProvider(path, separator string) *SnapshotProvider {
	return &SnapshotProvider{path: path, separator: separator}
}

// NewSnapshotProviderFrom serves an already built snapshot
func NewSnapshotProviderFrom(snap *Snapshot, separator string) *SnapshotProvider {
	return &SnapshotProvider{snap: snap, separator: separator}
}

// NewClient ignores creds beyond what the engine already validated
func (p *SnapshotProvider) NewClient(_ restfs.Credentials) (restfs.RemoteClient, error) {
	logger := util.GetLogger("SnapshotProvider.NewClient")

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snap == nil {
		if p.path == "" {
			return nil, fmt.Errorf("%w: snapshot path", restfs.ErrConfigurationMissing)
		}
		snap, err := LoadSnapshot(p.path)
		if err != nil {
			return nil, err
		}
		p.snap = snap
		logger.Info().Str("path", p.path).
			Int("containers", len(snap.Containers)).
			Int("objects", len(snap.Objects)).
			Msg("Loaded snapshot")
	}
	return &SnapshotClient{p: p}, nil
}

// SnapshotClient implements [restfs.RemoteClient] against a SnapshotProvider
type SnapshotClient struct {
	p *SnapshotProvider
}

func (c *SnapshotClient) ListContainers(ctx context.Context) ([]restfs.RemoteItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, &restfs.TransportError{Op: http.MethodGet, URL: "snapshot:containers", Err: err}
	}
	c.p.mu.RLock()
	defer c.p.mu.RUnlock()
	return slices.Clone(c.p.snap.Containers), nil
}

func (c *SnapshotClient) ListObjects(ctx context.Context) ([]restfs.RemoteItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, &restfs.TransportError{Op: http.MethodGet, URL: "snapshot:objects", Err: err}
	}
	c.p.mu.RLock()
	defer c.p.mu.RUnlock()
	return slices.Clone(c.p.snap.Objects), nil
}

// UpdateObject answers like the API does for an unknown object: 404
func (c *SnapshotClient) UpdateObject(ctx context.Context, id string, content []byte) error {
	url := "snapshot:objects/" + id
	if err := ctx.Err(); err != nil {
		return &restfs.TransportError{Op: http.MethodPut, URL: url, Err: err}
	}
	fullPath := strings.ReplaceAll(id, c.p.separator, "/")

	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	for i := range c.p.snap.Objects {
		if c.p.snap.Objects[i].FullPath == fullPath {
			c.p.snap.Objects[i].Content = string(content)
			return nil
		}
	}
	return &restfs.TransportError{
		Op:         http.MethodPut,
		URL:        url,
		StatusCode: http.StatusNotFound,
		Err:        fmt.Errorf("object %s not in snapshot", fullPath),
	}
}

var _ restfs.RemoteClient = (*SnapshotClient)(nil)
