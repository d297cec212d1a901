// Package remote drives the tree from the management API: a two-phase bulk
// import on connect and write-through of saved object content.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brettbedarf/restfs"
	"github.com/brettbedarf/restfs/filesystem"
	"github.com/brettbedarf/restfs/internal/metrics"
	"github.com/brettbedarf/restfs/internal/util"
	"github.com/google/uuid"
)

// State of an Engine's connection lifecycle
type State int32

const (
	Disconnected State = iota
	Connecting
	Populated
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Populated:
		return "populated"
	default:
		return "unknown"
	}
}

// Tree is the subset of the filesystem the engine populates
type Tree interface {
	CreateContainer(path string, opts filesystem.CreateOptions) (*filesystem.Node, error)
	PutObject(path string, payload []byte, opts filesystem.PutOptions) (*filesystem.Node, error)
	Reset()
}

// Report summarizes one completed population run
type Report struct {
	RunID      string
	Containers int // containers created
	Objects    int // objects written
	Skipped    int // items that failed individually
	Duration   time.Duration
}

// Option configures an Engine
type Option func(*Engine)

// WithMapper overrides the default path mapping
func WithMapper(m PathMapper) Option {
	return func(e *Engine) { e.mapper = m }
}

// WithPopulatedHook registers fn to run after every successful population
func WithPopulatedHook(fn func(Report)) Option {
	return func(e *Engine) { e.onPopulated = fn }
}

// Engine owns the connection state and the client used for remote calls.
// Each instance is independent; nothing is shared between engines.
type Engine struct {
	tree        Tree
	provider    restfs.ClientProvider
	mapper      PathMapper
	onPopulated func(Report)

	state atomic.Int32

	mu     sync.RWMutex // guards client
	client restfs.RemoteClient
}

// NewEngine creates a disconnected engine populating tree with clients from provider
func NewEngine(tree Tree, provider restfs.ClientProvider, opts ...Option) *Engine {
	e := &Engine{
		tree:     tree,
		provider: provider,
		mapper:   DefaultMapper(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Mapper returns the engine's path mapping
func (e *Engine) Mapper() PathMapper {
	return e.mapper
}

// Client returns the client of a populated engine
func (e *Engine) Client() (restfs.RemoteClient, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.client == nil || e.State() != Populated {
		return nil, restfs.ErrNotConnected
	}
	return e.client, nil
}

// Connect populates the tree from the remote: all containers first, then all
// objects. It is a no-op while a previous connect is running or has already
// populated the tree. A request-level failure in either phase returns the
// engine to Disconnected and empties whatever was partially imported.
func (e *Engine) Connect(ctx context.Context, creds restfs.Credentials) (err error) {
	logger := util.GetLogger("Engine.Connect")

	if err := creds.Validate(); err != nil {
		logger.Error().Err(err).Msg("Refusing to connect")
		return err
	}
	if !e.state.CompareAndSwap(int32(Disconnected), int32(Connecting)) {
		logger.Debug().Str("state", e.State().String()).Msg("Connect ignored")
		return nil
	}

	start := time.Now()
	report := Report{RunID: uuid.NewString()}
	logger = logger.With().Str("run", report.RunID).Str("host", creds.Host).Logger()
	logger.Info().Msg("Connecting")

	defer func() {
		if err == nil {
			return
		}
		e.tree.Reset()
		e.state.Store(int32(Disconnected))
		metrics.RecordSyncRun(metrics.ResultFailed, time.Since(start))
		logger.Error().Err(err).Msg("Connect failed")
	}()

	client, err := e.provider.NewClient(creds)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	created, skipped, err := e.importContainers(ctx, client)
	if err != nil {
		return err
	}
	report.Containers, report.Skipped = created, skipped

	written, skipped, err := e.importObjects(ctx, client)
	if err != nil {
		return err
	}
	report.Objects = written
	report.Skipped += skipped
	report.Duration = time.Since(start)

	e.mu.Lock()
	e.client = client
	e.state.Store(int32(Populated))
	e.mu.Unlock()

	metrics.RecordSyncRun(metrics.ResultSuccess, report.Duration)
	logger.Info().
		Int("containers", report.Containers).
		Int("objects", report.Objects).
		Int("skipped", report.Skipped).
		Dur("took", report.Duration).
		Msg("Tree populated")

	if e.onPopulated != nil {
		e.onPopulated(report)
	}
	return nil
}

// Reset drops the client, empties the tree and returns to Disconnected.
// It fails with ErrConnecting while a connect is running.
func (e *Engine) Reset() error {
	logger := util.GetLogger("Engine.Reset")

	// holding Connecting keeps Connect out until the tree is empty
	if !e.state.CompareAndSwap(int32(Populated), int32(Connecting)) &&
		!e.state.CompareAndSwap(int32(Disconnected), int32(Connecting)) {
		return restfs.ErrConnecting
	}

	e.mu.Lock()
	e.client = nil
	e.mu.Unlock()
	e.tree.Reset()
	e.state.Store(int32(Disconnected))

	logger.Debug().Msg("Engine reset")
	return nil
}

func (e *Engine) importContainers(ctx context.Context, client restfs.RemoteClient) (created, skipped int, err error) {
	logger := util.GetLogger("Engine.importContainers")

	items, err := client.ListContainers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list containers: %w", err)
	}
	for _, item := range items {
		if IsRoot(item.FullPath) {
			continue
		}
		p, err := e.mapper.ContainerPath(item.FullPath)
		if err == nil {
			_, err = e.tree.CreateContainer(p, filesystem.CreateOptions{})
		}
		switch {
		case err == nil:
			created++
			metrics.RecordSyncItem(metrics.PhaseContainers, metrics.ResultImported)
		case errors.Is(err, restfs.ErrAlreadyExists):
			logger.Trace().Str("fullPath", item.FullPath).Msg("Container already present")
		default:
			skipped++
			metrics.RecordSyncItem(metrics.PhaseContainers, metrics.ResultSkipped)
			logger.Warn().Err(err).Str("fullPath", item.FullPath).Msg("Skipping container")
		}
	}
	return created, skipped, nil
}

func (e *Engine) importObjects(ctx context.Context, client restfs.RemoteClient) (written, skipped int, err error) {
	logger := util.GetLogger("Engine.importObjects")

	items, err := client.ListObjects(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list objects: %w", err)
	}
	for _, item := range items {
		if IsRoot(item.FullPath) {
			continue
		}
		p, err := e.mapper.ObjectPath(item.FullPath)
		if err == nil {
			_, err = e.tree.PutObject(p, []byte(item.Content), filesystem.PutOptions{Create: true, Overwrite: true})
		}
		if err != nil {
			skipped++
			metrics.RecordSyncItem(metrics.PhaseObjects, metrics.ResultSkipped)
			logger.Warn().Err(err).Str("fullPath", item.FullPath).Msg("Skipping object")
			continue
		}
		written++
		metrics.RecordSyncItem(metrics.PhaseObjects, metrics.ResultImported)
	}
	return written, skipped, nil
}
