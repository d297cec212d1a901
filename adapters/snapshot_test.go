package adapters

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/brettbedarf/restfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotYAML = `containers:
  - fullPath: /
  - fullPath: /Common
objects:
  - fullPath: /Common/test
    apiAnonymous: |
      when HTTP_REQUEST {}
`

func writeSnapshot(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()
		snap, err := LoadSnapshot(writeSnapshot(t, "fixture.yaml", snapshotYAML))
		require.NoError(t, err)
		assert.Len(t, snap.Containers, 2)
		require.Len(t, snap.Objects, 1)
		assert.Equal(t, "when HTTP_REQUEST {}\n", snap.Objects[0].Content)
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(Snapshot{Objects: []restfs.RemoteItem{{FullPath: "/a/b", Content: "x"}}})
		require.NoError(t, err)
		snap, err := LoadSnapshot(writeSnapshot(t, "fixture.json", string(data)))
		require.NoError(t, err)
		assert.Equal(t, "/a/b", snap.Objects[0].FullPath)
	})

	t.Run("bad extension", func(t *testing.T) {
		t.Parallel()
		_, err := LoadSnapshot(writeSnapshot(t, "fixture.txt", snapshotYAML))
		assert.ErrorContains(t, err, "unknown snapshot file extension")
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		_, err := LoadSnapshot(writeSnapshot(t, "fixture.yml", "containers: ["))
		assert.ErrorContains(t, err, "failed to unmarshal snapshot")
	})
}

func TestSnapshotClient(t *testing.T) {
	t.Parallel()

	p := NewSnapshotProvider(writeSnapshot(t, "fixture.yaml", snapshotYAML), "~")
	c, err := p.NewClient(restfs.Credentials{})
	require.NoError(t, err)
	ctx := context.Background()

	containers, err := c.ListContainers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/Common", containers[1].FullPath)

	require.NoError(t, c.UpdateObject(ctx, "~Common~test", []byte("updated")))

	// a second client sees the same in-memory snapshot
	c2, err := p.NewClient(restfs.Credentials{})
	require.NoError(t, err)
	objects, err := c2.ListObjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, "updated", objects[0].Content)

	err = c.UpdateObject(ctx, "~Common~missing", nil)
	var te *restfs.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 404, te.StatusCode)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.ListObjects(cancelled)
	assert.ErrorIs(t, err, restfs.ErrTransport)
}

func TestSnapshotProvider_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewSnapshotProvider("", "~").NewClient(restfs.Credentials{})
	assert.ErrorIs(t, err, restfs.ErrConfigurationMissing)

	_, err = NewSnapshotProvider(filepath.Join(t.TempDir(), "none.yaml"), "~").NewClient(restfs.Credentials{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	c, err := NewSnapshotProviderFrom(&Snapshot{}, "~").NewClient(restfs.Credentials{})
	require.NoError(t, err)
	items, err := c.ListContainers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}
