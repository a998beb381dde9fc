package controlplane

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratacluster/strata/pkg/types"
)

// testEndpoint converts an httptest TLS server into an Endpoint. The test
// server uses a self-signed certificate, which is exactly what
// SkipTLSVerify exists for.
func testEndpoint(srv *httptest.Server) Endpoint {
	return Endpoint{
		Address:       strings.TrimPrefix(srv.URL, "https://"),
		Username:      "admin",
		Password:      "secret",
		SkipTLSVerify: true,
	}
}

func clusterOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{}`))
}

func TestRestClientErrorMapping(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/taken":
			w.WriteHeader(http.StatusConflict)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("zk quorum lost"))
		default:
			clusterOK(w)
		}
	}))
	defer srv.Close()

	c := newRESTClient(testEndpoint(srv), 5*time.Second)
	ctx := context.Background()

	assert.ErrorIs(t, c.do(ctx, http.MethodGet, "/missing", nil, nil), ErrNotFound)
	assert.ErrorIs(t, c.do(ctx, http.MethodPost, "/taken", nil, nil), ErrAlreadyExists)

	err := c.do(ctx, http.MethodGet, "/broken", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zk quorum lost")
}

// TestRestClientConnectionError verifies transport failures map to the
// ErrConnection sentinel, which operations treat as fatal
func TestRestClientConnectionError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clusterOK(w)
	}))
	ep := testEndpoint(srv)
	srv.Close()

	c := newRESTClient(ep, time.Second)
	err := c.do(context.Background(), http.MethodGet, "/api/v1/cluster", nil, nil)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestRestClientBasicAuth(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		clusterOK(w)
	}))
	defer srv.Close()

	c := newRESTClient(testEndpoint(srv), 5*time.Second)
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/api/v1/cluster", nil, nil))
	assert.Equal(t, "admin", gotUser)
	assert.Equal(t, "secret", gotPass)
}

func TestInfrastructureClient(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody hostStateRequest

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/cluster":
			clusterOK(w)
		case r.Method == http.MethodPut:
			gotMethod, gotPath = r.Method, r.URL.Path
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			clusterOK(w)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"connection_state": "maintenance"}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := NewInfrastructureClient(ctx, testEndpoint(srv), 5*time.Second)
	require.NoError(t, err)

	node := &types.Node{ID: "node-1", Name: "hv-01"}
	require.NoError(t, c.SetNodeState(ctx, node, types.ConnectionMaintenance, true))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/v1/hosts/node-1/state", gotPath)
	assert.Equal(t, string(types.ConnectionMaintenance), gotBody.State)
	assert.True(t, gotBody.Evacuate)

	state, err := c.GetConnectionState(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, types.ConnectionMaintenance, state)
}

func TestInfrastructureClientUnknownState(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/cluster" {
			clusterOK(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"connection_state": "entering_maintenance"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := NewInfrastructureClient(ctx, testEndpoint(srv), 5*time.Second)
	require.NoError(t, err)

	state, err := c.GetConnectionState(ctx, &types.Node{ID: "node-1"})
	require.NoError(t, err)
	assert.Equal(t, types.ConnectionUnknown, state)
}

func TestWorkloadClientGuestAddress(t *testing.T) {
	var guestBody string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/cluster":
			clusterOK(w)
		case "/api/v1/vms/svm-1":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(guestBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := NewWorkloadClient(ctx, testEndpoint(srv), 5*time.Second)
	require.NoError(t, err)

	guestBody = `{"ip_address": "10.0.0.200"}`
	addr, present, err := c.GetGuestAddress(ctx, "svm-1")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "10.0.0.200", addr)

	// A guest with no address is absent, not an error.
	guestBody = `{"ip_address": ""}`
	_, present, err = c.GetGuestAddress(ctx, "svm-1")
	require.NoError(t, err)
	assert.False(t, present)

	// So is a guest the endpoint no longer knows.
	_, present, err = c.GetGuestAddress(ctx, "svm-gone")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestWorkloadClientStopStart(t *testing.T) {
	var paths []string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/cluster" {
			clusterOK(w)
			return
		}
		paths = append(paths, r.Method+" "+r.URL.Path)
		clusterOK(w)
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := NewWorkloadClient(ctx, testEndpoint(srv), 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, c.StopGuest(ctx, "svm-1"))
	require.NoError(t, c.StartGuest(ctx, "svm-1"))
	assert.Equal(t, []string{"POST /api/v1/vms/svm-1/stop", "POST /api/v1/vms/svm-1/start"}, paths)
}

func TestStorageClient(t *testing.T) {
	var created containerRequest
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/cluster":
			clusterOK(w)
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/containers":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			clusterOK(w)
		case r.URL.Path == "/api/v1/containers/vmstore-01":
			clusterOK(w)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := NewStorageClient(ctx, testEndpoint(srv), 5*time.Second)
	require.NoError(t, err)

	cfg := types.ContainerConfig{
		Name:               "vmstore-01",
		ReplicationFactor:  3,
		DedupeEnabled:      true,
		FingerprintEnabled: true,
	}
	require.NoError(t, c.CreateContainer(ctx, cfg))
	assert.Equal(t, "vmstore-01", created.Name)
	assert.Equal(t, 3, created.ReplicationFactor)
	assert.True(t, created.DedupeEnabled)
	assert.True(t, created.FingerprintEnabled)

	exists, err := c.ContainerExists(ctx, "vmstore-01")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.ContainerExists(ctx, "vmstore-99")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStorageClientConflict(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/cluster" {
			clusterOK(w)
			return
		}
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := NewStorageClient(ctx, testEndpoint(srv), 5*time.Second)
	require.NoError(t, err)

	err = c.CreateContainer(ctx, types.ContainerConfig{Name: "vmstore-01", ReplicationFactor: 2})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}
