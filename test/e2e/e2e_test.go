package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var restfsBin string

func TestMain(m *testing.M) {
	if _, err := os.Stat("/dev/fuse"); err != nil {
		fmt.Println("skipping e2e tests: /dev/fuse not available")
		os.Exit(0)
	}
	if _, err := exec.LookPath("fusermount"); err != nil {
		fmt.Println("skipping e2e tests: fusermount not found")
		os.Exit(0)
	}

	tmpBinDir, err := os.MkdirTemp("", "restfs-bin")
	if err != nil {
		panic(err)
	}

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot determine current file path")
	}
	projRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	restfsBin = filepath.Join(tmpBinDir, "restfs")

	cmd := exec.Command("go", "build", "-o", restfsBin, "./cmd/restfs")
	cmd.Dir = projRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic(string(out))
	}

	code := m.Run()
	_ = os.RemoveAll(tmpBinDir)
	os.Exit(code)
}

func TestE2EMountAndRead(t *testing.T) {
	api := NewMockAPI().
		WithContainers("/", "/Common", "/Common/app").
		WithObject("/Common/test", "when HTTP_REQUEST {}").
		WithObject("/Common/app/redirect", "when HTTP_RESPONSE { HTTP::redirect / }")

	fs := StartRestFS(t, api)
	defer fs.Stop()

	data, err := os.ReadFile(filepath.Join(fs.MountDir, "Common", "test.tcl"))
	require.NoError(t, err)
	assert.Equal(t, "when HTTP_REQUEST {}", string(data))

	entries, err := os.ReadDir(filepath.Join(fs.MountDir, "Common"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"app", "test.tcl"}, names)

	info, err := os.Stat(filepath.Join(fs.MountDir, "Common", "app", "redirect.tcl"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("when HTTP_RESPONSE { HTTP::redirect / }")), info.Size())
	assert.False(t, info.IsDir())
}

func TestE2EWritePersists(t *testing.T) {
	api := NewMockAPI().
		WithContainers("/Common").
		WithObject("/Common/test", "when HTTP_REQUEST {}")

	fs := StartRestFS(t, api)
	defer fs.Stop()

	p := filepath.Join(fs.MountDir, "Common", "test.tcl")
	require.NoError(t, os.WriteFile(p, []byte("when CLIENT_ACCEPTED {}"), 0o644))

	assert.Equal(t, "when CLIENT_ACCEPTED {}", api.Updated("~Common~test"))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "when CLIENT_ACCEPTED {}", string(data))
}

func TestE2ERejectedWrite(t *testing.T) {
	api := NewMockAPI().
		WithContainers("/Common").
		WithObject("/Common/test", "when HTTP_REQUEST {}").
		WithUpdateError(http.StatusBadRequest)

	fs := StartRestFS(t, api)
	defer fs.Stop()

	p := filepath.Join(fs.MountDir, "Common", "test.tcl")
	err := os.WriteFile(p, []byte("not tcl {"), 0o644)
	require.Error(t, err)
}

func TestE2ELocalTreeEdits(t *testing.T) {
	api := NewMockAPI().
		WithContainers("/Common").
		WithObject("/Common/test", "when HTTP_REQUEST {}")

	fs := StartRestFS(t, api)
	defer fs.Stop()

	dir := filepath.Join(fs.MountDir, "Common", "scratch")
	require.NoError(t, os.Mkdir(dir, 0o755))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	moved := filepath.Join(fs.MountDir, "Common", "scratch", "moved.tcl")
	require.NoError(t, os.Rename(filepath.Join(fs.MountDir, "Common", "test.tcl"), moved))

	data, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, "when HTTP_REQUEST {}", string(data))

	assert.Error(t, os.Remove(dir), "non-empty container")
	require.NoError(t, os.Remove(moved))
	require.NoError(t, os.Remove(dir))
}

func TestE2ECreateObject(t *testing.T) {
	api := NewMockAPI().
		WithContainers("/Common").
		WithObject("/Common/test", "when HTTP_REQUEST {}")

	fs := StartRestFS(t, api)
	defer fs.Stop()

	p := filepath.Join(fs.MountDir, "Common", "new.tcl")
	require.NoError(t, os.WriteFile(p, []byte("when LB_SELECTED {}"), 0o644))
	assert.Equal(t, "when LB_SELECTED {}", api.Updated("~Common~new"))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, int64(len("when LB_SELECTED {}")), info.Size())
}

// MockAPI fakes the two collection listings and the object update call
type MockAPI struct {
	mu          sync.Mutex
	containers  []map[string]string
	objects     []map[string]string
	updates     map[string]string
	updateError int
}

func NewMockAPI() *MockAPI {
	return &MockAPI{updates: make(map[string]string)}
}

func (a *MockAPI) WithContainers(paths ...string) *MockAPI {
	for _, p := range paths {
		a.containers = append(a.containers, map[string]string{"fullPath": p})
	}
	return a
}

func (a *MockAPI) WithObject(fullPath, content string) *MockAPI {
	a.objects = append(a.objects, map[string]string{"fullPath": fullPath, "apiAnonymous": content})
	return a
}

// WithUpdateError makes every update fail with statusCode
func (a *MockAPI) WithUpdateError(statusCode int) *MockAPI {
	a.updateError = statusCode
	return a
}

// Updated returns the last content sent for id
func (a *MockAPI) Updated(id string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.updates[id]
}

func (a *MockAPI) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /mgmt/tm/sys/folder", func(w http.ResponseWriter, r *http.Request) {
		writeItems(w, a.containers)
	})
	mux.HandleFunc("GET /mgmt/tm/ltm/rule", func(w http.ResponseWriter, r *http.Request) {
		writeItems(w, a.objects)
	})
	mux.HandleFunc("PUT /mgmt/tm/ltm/rule/{id}", func(w http.ResponseWriter, r *http.Request) {
		if a.updateError != 0 {
			w.WriteHeader(a.updateError)
			_, _ = fmt.Fprintf(w, `{"code":%d,"message":"rejected"}`, a.updateError)
			return
		}
		var body struct {
			Content string `json:"apiAnonymous"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.mu.Lock()
		a.updates[r.PathValue("id")] = body.Content
		a.mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})
	return mux
}

func writeItems(w http.ResponseWriter, items []map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

// RestFSInstance is a running restfs mount process
type RestFSInstance struct {
	cmd      *exec.Cmd
	MountDir string
	stderr   *bytes.Buffer
	cleanup  func()
}

// StartRestFS serves api, mounts restfs against it and waits for the tree
func StartRestFS(t *testing.T, api *MockAPI) *RestFSInstance {
	t.Helper()
	srv := httptest.NewServer(api.Handler())

	base := t.TempDir()
	mountDir := filepath.Join(base, "mnt")
	require.NoError(t, os.MkdirAll(mountDir, 0o755))

	cfg := fmt.Sprintf("host: %s\nusername: admin\npassword: admin\nattr_timeout: 0\nentry_timeout: 0\n", srv.URL)
	cfgPath := filepath.Join(base, "restfs.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	cmd := exec.Command(restfsBin, "--config", cfgPath, "-v", "4", "mount", mountDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Start())

	instance := &RestFSInstance{
		cmd:      cmd,
		MountDir: mountDir,
		stderr:   &stderr,
		cleanup:  srv.Close,
	}

	if err := instance.WaitForMount(15 * time.Second); err != nil {
		instance.Stop()
		t.Fatalf("restfs mount failed: %v\n%s", err, stderr.String())
	}
	return instance
}

// Stop interrupts the process and waits for it to unmount
func (r *RestFSInstance) Stop() {
	if r.cmd != nil && r.cmd.Process != nil {
		_ = r.cmd.Process.Signal(os.Interrupt)

		done := make(chan error, 1)
		go func() {
			done <- r.cmd.Wait()
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			_ = r.cmd.Process.Kill()
			<-done
			_ = exec.Command("fusermount", "-u", r.MountDir).Run()
		}
	}
	if r.cleanup != nil {
		r.cleanup()
	}
}

// WaitForMount polls until the mount lists at least one entry
func (r *RestFSInstance) WaitForMount(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if files, err := os.ReadDir(r.MountDir); err == nil && len(files) > 0 {
			return nil
		}
		if r.cmd.ProcessState != nil {
			return fmt.Errorf("process exited: %s", strings.TrimSpace(r.stderr.String()))
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for restfs mount to be ready")
}
