// Package provider assembles the tree, sync engine, persister and change
// notifier into the operation set a host (CLI, FUSE mount, editor bridge)
// drives.
package provider

import (
	"context"

	"github.com/brettbedarf/restfs"
	"github.com/brettbedarf/restfs/config"
	"github.com/brettbedarf/restfs/events"
	"github.com/brettbedarf/restfs/filesystem"
	"github.com/brettbedarf/restfs/internal/util"
	"github.com/brettbedarf/restfs/remote"
)

// Provider is the host-facing filesystem
type Provider struct {
	cfg       *config.Config
	fs        *filesystem.FileSystem
	notifier  *events.Notifier
	engine    *remote.Engine
	persister *remote.Persister
}

// New wires a provider whose clients come from clients
func New(cfg *config.Config, clients restfs.ClientProvider, opts ...remote.Option) *Provider {
	notifier := events.NewNotifier(cfg.NotifyDelay)
	fs := filesystem.NewFS(notifier)
	mapper := remote.PathMapper{Suffix: cfg.Remote.Suffix, Separator: cfg.Remote.Separator}

	engine := remote.NewEngine(fs, clients, append([]remote.Option{remote.WithMapper(mapper)}, opts...)...)
	return &Provider{
		cfg:       cfg,
		fs:        fs,
		notifier:  notifier,
		engine:    engine,
		persister: remote.NewPersister(engine, mapper),
	}
}

// Config returns the configuration the provider was built with
func (p *Provider) Config() *config.Config { return p.cfg }

// FS exposes the underlying tree
func (p *Provider) FS() *filesystem.FileSystem { return p.fs }

// State reports the connection lifecycle state
func (p *Provider) State() remote.State { return p.engine.State() }

func (p *Provider) Stat(path string) (restfs.FileInfo, error) {
	return p.fs.Stat(path)
}

func (p *Provider) ReadDirectory(path string) ([]restfs.FileInfo, error) {
	return p.fs.ReadDirectory(path)
}

func (p *Provider) ReadFile(path string) ([]byte, error) {
	return p.fs.ReadFile(path)
}

// WriteFile updates the local tree only; Save sends content to the remote
func (p *Provider) WriteFile(path string, data []byte, opts filesystem.PutOptions) error {
	_, err := p.fs.PutObject(path, data, opts)
	return err
}

func (p *Provider) CreateDirectory(path string) error {
	_, err := p.fs.CreateContainer(path, filesystem.CreateOptions{})
	return err
}

func (p *Provider) Rename(oldPath, newPath string, opts filesystem.RenameOptions) error {
	return p.fs.Rename(oldPath, newPath, opts)
}

func (p *Provider) Delete(path string) error {
	return p.fs.Delete(path)
}

// Connect populates the tree using the configured credentials
func (p *Provider) Connect(ctx context.Context) error {
	return p.ConnectWith(ctx, p.cfg.Credentials())
}

// ConnectWith populates the tree using explicit credentials
func (p *Provider) ConnectWith(ctx context.Context, creds restfs.Credentials) error {
	return p.engine.Connect(ctx, creds)
}

// Refresh empties the tree and runs a full connect again
func (p *Provider) Refresh(ctx context.Context) error {
	logger := util.GetLogger("Provider.Refresh")

	if err := p.engine.Reset(); err != nil {
		return err
	}
	logger.Info().Msg("Refreshing tree")
	return p.Connect(ctx)
}

// Save persists content of the object at path to the remote. The tree is
// not touched; hosts pair it with WriteFile for the optimistic local update.
func (p *Provider) Save(ctx context.Context, path string, data []byte) error {
	return p.persister.Persist(ctx, path, data)
}

// Subscribe receives batched change records; see [events.Notifier.Subscribe]
func (p *Provider) Subscribe(buffer int) (<-chan events.Batch, func()) {
	return p.notifier.Subscribe(buffer)
}

// Close delivers pending change records and closes every subscription
func (p *Provider) Close() {
	p.notifier.Close()
}
