package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumpseat/jumpseat-api/config"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	"github.com/jumpseat/jumpseat-api/internal/service"
)

// memoryAppliers is an ApplierRepository kept in memory; socket goroutines may call it
// after a test has returned.
type memoryAppliers struct {
	mu       sync.Mutex
	statuses map[string]model.ApplierStatus
}

func (m *memoryAppliers) GetByID(_ context.Context, id string) (*model.Applier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[id]
	if !ok {
		status = model.ApplierStatusOffline
	}
	return &model.Applier{ID: id, Status: status}, nil
}

func (m *memoryAppliers) UpdateStatus(_ context.Context, id string, status model.ApplierStatus, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = status
	return nil
}

func (m *memoryAppliers) status(id string) model.ApplierStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[id]
}

func (m *memoryAppliers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.statuses)
}

type presenceServer struct {
	srv      *httptest.Server
	appliers *memoryAppliers
}

func newPresenceServer(t *testing.T, origins ...string) *presenceServer {
	t.Helper()
	appliers := &memoryAppliers{statuses: map[string]model.ApplierStatus{}}
	svc, err := service.NewPresenceService(service.PresenceServiceOptions{
		Appliers: appliers,
		Config: config.PresenceConfig{
			IdleTimeout:    time.Hour,
			SweepInterval:  time.Hour,
			WriteTimeout:   time.Second,
			PersistTimeout: time.Second,
		},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(RouterServices{Presence: svc, AllowedOrigins: origins}))
	t.Cleanup(srv.Close)
	return &presenceServer{srv: srv, appliers: appliers}
}

func (p *presenceServer) dial(t *testing.T, query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(p.srv.URL, "http") + "/ws/presence" + query
	conn, resp, err := websocket.DefaultDialer.Dial(u, header)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readCloseCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		return closeErr.Code
	}
}

func TestPresenceSocket_MissingApplierID(t *testing.T) {
	t.Parallel()
	p := newPresenceServer(t)

	conn, _, err := p.dial(t, "", nil)
	require.NoError(t, err)

	assert.Equal(t, model.CloseMissingApplierID, readCloseCode(t, conn))
	assert.Zero(t, p.appliers.count())
}

func TestPresenceSocket_ConnectHeartbeatAndSnapshot(t *testing.T) {
	t.Parallel()
	p := newPresenceServer(t)

	conn, _, err := p.dial(t, "?applierId=applier-1", nil)
	require.NoError(t, err)

	change := readFrame(t, conn)
	assert.Equal(t, model.PresenceMessageStatusChange, change["type"])
	assert.Equal(t, "applier-1", change["applierId"])
	assert.Equal(t, string(model.ApplierStatusActive), change["status"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": model.PresenceMessageHeartbeat}))
	ack := readFrame(t, conn)
	assert.Equal(t, model.PresenceMessageAck, ack["type"])
	assert.NotEmpty(t, ack["timestamp"])

	resp, err := http.Get(p.srv.URL + "/api/presence")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Connections []model.PresenceConnectionInfo `json:"connections"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Connections, 1)
	assert.Equal(t, "applier-1", body.Connections[0].ApplierID)
}

func TestPresenceSocket_SecondConnectionSupersedes(t *testing.T) {
	t.Parallel()
	p := newPresenceServer(t)

	first, _, err := p.dial(t, "?applierId=applier-1", nil)
	require.NoError(t, err)
	readFrame(t, first)

	second, _, err := p.dial(t, "?applierId=applier-1", nil)
	require.NoError(t, err)

	assert.Equal(t, model.CloseSuperseded, readCloseCode(t, first))
	change := readFrame(t, second)
	assert.Equal(t, string(model.ApplierStatusActive), change["status"])

	// The superseded socket's close must not mark the applier offline.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, model.ApplierStatusActive, p.appliers.status("applier-1"))
}

func TestPresenceSocket_ClientCloseMarksOffline(t *testing.T) {
	t.Parallel()
	p := newPresenceServer(t)

	watcher, _, err := p.dial(t, "?applierId=watcher", nil)
	require.NoError(t, err)
	readFrame(t, watcher)

	conn, _, err := p.dial(t, "?applierId=applier-1", nil)
	require.NoError(t, err)
	readFrame(t, conn)
	// watcher also sees applier-1 come online.
	readFrame(t, watcher)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	change := readFrame(t, watcher)
	assert.Equal(t, "applier-1", change["applierId"])
	assert.Equal(t, string(model.ApplierStatusOffline), change["status"])
	assert.Equal(t, model.ApplierStatusOffline, p.appliers.status("applier-1"))
}

func TestPresenceSocket_OriginCheck(t *testing.T) {
	t.Parallel()
	p := newPresenceServer(t, "https://app.jumpseat.test")

	_, resp, err := p.dial(t, "?applierId=a", http.Header{"Origin": {"https://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := p.dial(t, "?applierId=a", http.Header{"Origin": {"https://app.jumpseat.test"}})
	require.NoError(t, err)
	readFrame(t, conn)
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	assert.Nil(t, originChecker(nil))

	wildcard := originChecker([]string{"*"})
	require.NotNil(t, wildcard)
	r := httptest.NewRequest(http.MethodGet, "/ws/presence", nil)
	r.Header.Set("Origin", "https://whatever.test")
	assert.True(t, wildcard(r))

	listed := originChecker([]string{" https://App.jumpseat.test/ "})
	r.Header.Set("Origin", "https://app.jumpseat.test")
	assert.True(t, listed(r))
	r.Header.Set("Origin", "https://other.test")
	assert.False(t, listed(r))
	r.Header.Del("Origin")
	assert.True(t, listed(r))
}
