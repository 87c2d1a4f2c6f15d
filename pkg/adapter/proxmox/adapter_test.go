package proxmox

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkeeper/autopilot/pkg/types"
)

// fakeProxmox is a minimal stand-in for the real API: it always reports
// the vm on "pve2" regardless of what the descriptor's node hint says,
// so tests can assert the adapter uses the authoritative node.
func fakeProxmox(t *testing.T, taskExit string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api2/json/cluster/resources", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []clusterResource{{VMID: 101, Node: "pve2", Type: "qemu", Status: "running"}})
	})
	mux.HandleFunc("/api2/json/nodes/pve2/vzdump", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, "UPID:pve2:TASK123")
	})
	mux.HandleFunc("/api2/json/nodes/pve2/tasks/UPID:pve2:TASK123/status", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, taskStatus{Status: "stopped", ExitStatus: taskExit})
	})
	mux.HandleFunc("/api2/json/nodes/pve2/tasks/UPID:pve2:TASK123/log", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []taskLogLine{{N: 1, T: "INFO: starting"}, {N: 2, T: "ERROR: disk full"}})
	})
	mux.HandleFunc("/api2/json/nodes/pve2/qemu/101/status/current", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, vmStatus{Status: "running", CPU: 0.1, Mem: 1024, Uptime: 99})
	})

	return httptest.NewTLSServer(mux)
}

func writeData(w http.ResponseWriter, v interface{}) {
	data, _ := json.Marshal(v)
	fmt.Fprintf(w, `{"data": %s}`, data)
}

func testConfig(t *testing.T, server *httptest.Server) Config {
	t.Helper()
	host, port := splitHostPort(t, server.URL)
	return Config{Host: host, Port: port, User: "root@pam", TokenID: "auto", TokenSecret: "secret", VerifyTLS: false}
}

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(parsed.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestAdapter_BackupSucceedsAndUsesAuthoritativeNode(t *testing.T) {
	server := fakeProxmox(t, "OK")
	defer server.Close()

	a := New(testConfig(t, server), zerolog.Nop())
	descriptor := &types.ServiceDescriptor{Name: "vm1", Kind: types.KindVM, VMID: 101, Node: "pve1"}
	destination := types.BackupDestination{Method: types.DestinationDirect, Path: "/mnt/shared"}
	metadata := &types.BackupMetadata{}

	ok := a.Backup(context.Background(), descriptor, destination, metadata)
	assert.True(t, ok)
	assert.Equal(t, "pve2", metadata.Node)
}

func TestAdapter_BackupFailsOnNonOKExitStatus(t *testing.T) {
	server := fakeProxmox(t, "error disk full")
	defer server.Close()

	a := New(testConfig(t, server), zerolog.Nop())
	descriptor := &types.ServiceDescriptor{Name: "vm1", Kind: types.KindVM, VMID: 101, Node: "pve1"}
	destination := types.BackupDestination{Method: types.DestinationDirect, Path: "/mnt/shared"}

	ok := a.Backup(context.Background(), descriptor, destination, &types.BackupMetadata{})
	assert.False(t, ok)
}

func TestAdapter_StatusReportsAuthoritativeNode(t *testing.T) {
	server := fakeProxmox(t, "OK")
	defer server.Close()

	a := New(testConfig(t, server), zerolog.Nop())
	descriptor := &types.ServiceDescriptor{Name: "vm1", Kind: types.KindVM, VMID: 101, Node: "pve1"}

	status := a.Status(context.Background(), descriptor)
	assert.Equal(t, "pve2", status["node"])
	assert.Equal(t, "running", status["status"])
}

func TestAdapter_MatchesOnlyVMAndLXC(t *testing.T) {
	a := New(Config{}, zerolog.Nop())
	assert.True(t, a.Matches(&types.ServiceDescriptor{Kind: types.KindVM}))
	assert.True(t, a.Matches(&types.ServiceDescriptor{Kind: types.KindLXC}))
	assert.False(t, a.Matches(&types.ServiceDescriptor{Kind: types.KindDocker}))
}
