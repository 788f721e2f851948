package statsd

import (
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" queue_sync/added ":  "queue_sync_added",
		"presence..closed":    "presence.closed",
		".presence.connected": "presence.connected",
		"bad:name|x":          "bad_name_x",
		"   ":                 "",
	}
	for input, want := range tests {
		assert.Equal(t, want, normalizeMetricName(input), input)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " jumpseat "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage", "reason": "a,b|c"}

	assert.Equal(t, "|#env:stage,reason:a_b_c,result:success,service:jumpseat", formatTags(global, local))
	assert.Empty(t, formatTags(nil, nil))
	assert.Empty(t, formatTags(map[string]string{" ": "x"}, nil))
}

func TestFormatLine(t *testing.T) {
	t.Parallel()

	line := formatLine("jumpseat.queue_sync.added", "3", "c", nil, map[string]string{"result": "success"})
	assert.Equal(t, "jumpseat.queue_sync.added:3|c|#result:success", line)
}

func TestCloneTagsReturnsCopy(t *testing.T) {
	t.Parallel()

	src := map[string]string{"status": "active"}
	cp := cloneTags(src)
	cp["status"] = "idle"
	assert.Equal(t, "active", src["status"])
}

func readLine(t *testing.T, conn net.Conn) string {
	t.Helper()
	buf := make([]byte, 512)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestClientEmitsLines(t *testing.T) {
	t.Parallel()

	local, peer := net.Pipe()
	defer peer.Close()
	c := newClient(local, ".jumpseat.", map[string]string{"env": "test"}, slog.Default())

	go c.Count("queue_sync.added", 4, map[string]string{"result": "success"})
	assert.Equal(t, "jumpseat.queue_sync.added:4|c|#env:test,result:success", readLine(t, peer))

	go c.Gauge("presence.connections", 2.5, nil)
	assert.Equal(t, "jumpseat.presence.connections:2.5|g|#env:test", readLine(t, peer))

	go c.Timing("queue_sync.duration", 1500*time.Microsecond, nil)
	assert.Equal(t, "jumpseat.queue_sync.duration:1.5|ms|#env:test", readLine(t, peer))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	// Dropped silently after Close.
	c.Count("queue_sync.added", 1, nil)
}

func TestNilClientIsNoop(t *testing.T) {
	t.Parallel()

	var c *Client
	c.Count("x", 1, nil)
	c.Gauge("x", 1, nil)
	c.Timing("x", time.Second, nil)
	assert.NoError(t, c.Close())
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Address: "   "})
	require.Error(t, err)

	_, err = NewClient(Config{Address: "bad address"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "statsd dial"))

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	c, err := NewClient(Config{Address: pc.LocalAddr().String(), Prefix: "jumpseat"})
	require.NoError(t, err)
	defer c.Close()

	c.Count("presence.closed", 1, map[string]string{"code": "4002"})
	buf := make([]byte, 512)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(time.Second)))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "jumpseat.presence.closed:1|c|#code:4002", string(buf[:n]))
}
