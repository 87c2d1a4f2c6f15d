package engine

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkeeper/autopilot/pkg/config"
	"github.com/gridkeeper/autopilot/pkg/storage"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func genericConfig(t *testing.T, backupRoot string, services string) *config.Model {
	t.Helper()
	doc := fmt.Sprintf(`
global:
  hypervisor:
    kind: proxmox
    host: 10.0.0.1
    user: root@pam
  backup:
    enabled: true
    root: %s
    retention_days: 30
  notification:
    enabled: false
services:
%s
`, backupRoot, services)
	m, err := config.LoadBytes([]byte(doc))
	require.NoError(t, err)
	return m
}

// S1 — single generic service, local backup, success.
func TestBackupService_LocalGenericSuccess(t *testing.T) {
	root := t.TempDir()
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), randomBytes(t, 4096), 0o644))

	services := fmt.Sprintf(`  - name: files
    kind: generic
    backup: true
    backup_paths: [%q]
`, srcDir)
	model := genericConfig(t, root, services)
	store := newTestStore(t)

	e, err := New(model, store, false)
	require.NoError(t, err)

	results := e.BackupAllServices(context.Background())
	assert.Equal(t, map[string]bool{"files": true}, results)

	status, err := store.Get("backup_status.files", "")
	require.NoError(t, err)
	assert.Equal(t, "success", status)

	serviceDir := filepath.Join(root, "files")
	entries, err := os.ReadDir(serviceDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "files_")
	assert.Contains(t, entries[0].Name(), "_generic.tar.gz")

	exists, err := store.Exists("backup_error.files")
	require.NoError(t, err)
	assert.False(t, exists)
}

// S2 — mixed results across three services; one has no backup paths.
func TestBackupAllServices_MixedResults(t *testing.T) {
	root := t.TempDir()
	okDir1 := t.TempDir()
	okDir2 := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(okDir1, "f.txt"), randomBytes(t, 4096), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(okDir2, "f.txt"), randomBytes(t, 4096), 0o644))

	services := fmt.Sprintf(`  - name: a
    kind: generic
    backup: true
    backup_paths: [%q]
  - name: b
    kind: generic
    backup: true
    backup_paths: []
  - name: c
    kind: generic
    backup: true
    backup_paths: [%q]
`, okDir1, okDir2)
	model := genericConfig(t, root, services)
	store := newTestStore(t)

	e, err := New(model, store, false)
	require.NoError(t, err)

	results := e.BackupAllServices(context.Background())
	assert.Equal(t, map[string]bool{"a": true, "b": false, "c": true}, results)

	failedStatus, err := store.Get("backup_status.b", "")
	require.NoError(t, err)
	assert.Equal(t, "failed", failedStatus)

	errMsg, err := store.Get("backup_error.b", "")
	require.NoError(t, err)
	assert.NotEmpty(t, errMsg)
}

// S3 — remote archive server reachable takes priority over direct.
func TestResolveDestination_RemotePriorityWhenReachable(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api2/json/access/ticket" {
			w.Write([]byte(`{"data":{"ticket":"tkt","CSRFPreventionToken":"csrf"}}`))
			return
		}
		w.Write([]byte(`{"data":{"version":"8.0"}}`))
	}))
	defer server.Close()
	host, port := splitHostPort(t, server.URL)

	root := t.TempDir()
	direct := t.TempDir()
	services := `  - name: vm1
    kind: vm
    backup: true
    vmid: 100
    node: pve1
`
	doc := fmt.Sprintf(`
global:
  hypervisor:
    kind: proxmox
    host: 10.0.0.1
    user: root@pam
  backup:
    enabled: true
    root: %s
    retention_days: 30
    remote_archive_server:
      enabled: true
      host: %s
      port: %d
      datastore: ds1
      user: root@pam
      password: secret
      verify_tls: false
    direct_shared_storage:
      enabled: true
      path: %s
  notification:
    enabled: false
services:
%s
`, root, host, port, direct, services)

	model, err := config.LoadBytes([]byte(doc))
	require.NoError(t, err)
	store := newTestStore(t)

	e, err := New(model, store, false)
	require.NoError(t, err)

	descriptor := model.GetService("vm1")
	dest, err := e.resolveDestination(context.Background(), descriptor)
	require.NoError(t, err)
	assert.Equal(t, "remote", string(dest.Method))
}

// S4 — remote archive server enabled but unreachable; direct is not
// silently substituted.
func TestResolveDestination_RemoteUnreachableReturnsBackupError(t *testing.T) {
	root := t.TempDir()
	direct := t.TempDir()
	services := `  - name: vm1
    kind: vm
    backup: true
    vmid: 100
    node: pve1
`
	doc := fmt.Sprintf(`
global:
  hypervisor:
    kind: proxmox
    host: 10.0.0.1
    user: root@pam
  backup:
    enabled: true
    root: %s
    retention_days: 30
    remote_archive_server:
      enabled: true
      host: 127.0.0.1
      port: 1
      datastore: ds1
      user: root@pam
      password: secret
      verify_tls: false
    direct_shared_storage:
      enabled: true
      path: %s
  notification:
    enabled: false
services:
%s
`, root, direct, services)

	model, err := config.LoadBytes([]byte(doc))
	require.NoError(t, err)
	store := newTestStore(t)

	e, err := New(model, store, false)
	require.NoError(t, err)

	descriptor := model.GetService("vm1")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = e.resolveDestination(ctx, descriptor)
	require.Error(t, err)
	var backupErr *BackupError
	assert.ErrorAs(t, err, &backupErr)
}

// S6 — retention deletes only artifacts older than retention_days.
func TestApplyRetention_DeletesOnlyExpired(t *testing.T) {
	root := t.TempDir()
	serviceDir := filepath.Join(root, "svc")
	require.NoError(t, os.MkdirAll(serviceDir, 0o755))

	ages := []int{10, 20, 30, 40, 50}
	for _, days := range ages {
		path := filepath.Join(serviceDir, fmt.Sprintf("artifact_%d.tar.gz", days))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		mtime := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}

	model := genericConfig(t, root, "")
	store := newTestStore(t)
	e, err := New(model, store, false)
	require.NoError(t, err)

	deleted, err := e.applyRetention("svc", 35)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	remaining, err := os.ReadDir(serviceDir)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestApplyRetention_DryRunListsAndDeletesNothing(t *testing.T) {
	root := t.TempDir()
	serviceDir := filepath.Join(root, "svc")
	require.NoError(t, os.MkdirAll(serviceDir, 0o755))
	path := filepath.Join(serviceDir, "old.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	old := time.Now().Add(-100 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	model := genericConfig(t, root, "")
	store := newTestStore(t)
	e, err := New(model, store, true)
	require.NoError(t, err)

	deleted, err := e.applyRetention("svc", 35)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestArtifactFilename_SortsChronologically(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	earlier := artifactFilename("svc", "docker", base)
	later := artifactFilename("svc", "docker", base.Add(time.Hour))
	assert.Less(t, earlier, later)
}

func TestNew_RejectsDisabledBackupSubsystem(t *testing.T) {
	doc := `
global:
  hypervisor:
    kind: proxmox
    host: 10.0.0.1
    user: root@pam
  backup:
    enabled: false
    root: /tmp/b
    retention_days: 30
services: []
`
	model, err := config.LoadBytes([]byte(doc))
	require.NoError(t, err)
	store := newTestStore(t)

	_, err = New(model, store, false)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestBackupAllServices_EmptyInventoryReturnsEmptyMap(t *testing.T) {
	root := t.TempDir()
	model := genericConfig(t, root, "")
	store := newTestStore(t)

	e, err := New(model, store, false)
	require.NoError(t, err)

	results := e.BackupAllServices(context.Background())
	assert.Empty(t, results)
}

func TestBackupService_UnknownNamePanics(t *testing.T) {
	root := t.TempDir()
	model := genericConfig(t, root, "")
	store := newTestStore(t)
	e, err := New(model, store, false)
	require.NoError(t, err)

	assert.Panics(t, func() {
		e.BackupService(context.Background(), "nope")
	})
}

// randomBytes returns n incompressible bytes, so an archive of them stays
// above the engine's minimum artifact size after gzip.
func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), port
}
