package remote

import (
	"context"
	"errors"

	"github.com/brettbedarf/restfs"
	"github.com/brettbedarf/restfs/internal/metrics"
	"github.com/brettbedarf/restfs/internal/util"
)

// ClientSource hands out the client of an established connection
type ClientSource interface {
	Client() (restfs.RemoteClient, error)
}

// Persister writes saved object content through to the remote. It never
// reads or mutates the tree and never retries.
type Persister struct {
	source ClientSource
	mapper PathMapper
}

func NewPersister(source ClientSource, mapper PathMapper) *Persister {
	return &Persister{source: source, mapper: mapper}
}

// Persist replaces the remote content of the object at treePath with payload
func (p *Persister) Persist(ctx context.Context, treePath string, payload []byte) error {
	logger := util.GetLogger("Persister.Persist")

	id, err := p.mapper.RemoteID(treePath)
	if err != nil {
		return &restfs.PathError{Op: "persist", Path: treePath, Err: err}
	}
	client, err := p.source.Client()
	if err != nil {
		return &restfs.PathError{Op: "persist", Path: treePath, Err: err}
	}

	if err := client.UpdateObject(ctx, id, payload); err != nil {
		if !errors.Is(err, restfs.ErrTransport) {
			err = &restfs.TransportError{Op: "update " + id, Err: err}
		}
		metrics.RecordPersist(metrics.ResultFailed)
		logger.Error().Err(err).Str("path", treePath).Str("id", id).Msg("Update failed")
		return &restfs.PathError{Op: "persist", Path: treePath, Err: err}
	}

	metrics.RecordPersist(metrics.ResultSuccess)
	logger.Debug().Str("path", treePath).Str("id", id).Int("bytes", len(payload)).Msg("Persisted object")
	return nil
}
