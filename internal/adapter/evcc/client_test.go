package evcc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/berfenger/evccdisplay/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, server *httptest.Server, maxBody int64) *Client {
	t.Helper()
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(server.URL, "http://"))
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	client, err := NewClient(host, port, "", 2*time.Second, maxBody)
	require.NoError(t, err)
	return client
}

func TestFetchSendsProjection(t *testing.T) {
	var gotPath, gotJq string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotJq = r.URL.Query().Get("jq")
		_, _ = w.Write([]byte(`{"pvPower": 42}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, 1536)
	body, err := client.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/api/state", gotPath)
	assert.True(t, strings.HasPrefix(gotJq, "{gridPower:.grid.power"))
	assert.Contains(t, gotJq, "vehicletitle:.vehicleTitle")

	s := domain.NewTelemetrySnapshot()
	require.NoError(t, client.Decode(body, &s))
	assert.Equal(t, 42.0, s.PVPower)
}

func TestFetchRejectsNonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(t, server, 1536).Fetch(context.Background())
	var netErr *domain.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Contains(t, err.Error(), "503")
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat(" ", 100) + "{}"))
	}))
	defer server.Close()

	_, err := newTestClient(t, server, 64).Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrBodyTooLarge)

	body, err := newTestClient(t, server, 0).Fetch(context.Background())
	require.NoError(t, err, "zero disables the limit")
	assert.Len(t, body, 102)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(t, server, 1536)
	client.httpClient.Timeout = 50 * time.Millisecond
	_, err := client.Fetch(context.Background())
	var netErr *domain.NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestProbe(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client := newTestClient(t, server, 1536)
	assert.NoError(t, client.Probe(context.Background()))

	server.Close()
	var netErr *domain.NetworkError
	assert.True(t, errors.As(client.Probe(context.Background()), &netErr))
}
