package rangeorders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHeadsServer answers eth_subscribe and pushes one header per connection.
// When dropAfterHead is set the connection is closed right after the header.
func newHeadsServer(t *testing.T, dropAfterHead bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var connections atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := connections.Add(1)

		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		assert.Equal(t, "eth_subscribe", req.Method)
		assert.Equal(t, []interface{}{"newHeads"}, req.Params)

		_ = conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": fmt.Sprintf("0xsub%d", n)})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{
			"jsonrpc": "2.0",
			"method": "eth_subscription",
			"params": {
				"subscription": "0xsub%d",
				"result": {"number": "0x%x", "hash": "0x%064x", "baseFeePerGas": "0x6fc23ac00", "timestamp": "0x65a0f000"}
			}
		}`, n, 100+n, n)))

		if dropAfterHead {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &connections
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type headRecorder struct {
	mu    sync.Mutex
	heads []BlockHeader
}

func (r *headRecorder) record(h BlockHeader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heads = append(r.heads, h)
}

func (r *headRecorder) snapshot() []BlockHeader {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]BlockHeader(nil), r.heads...)
}

func TestHeadWatcherReceivesHeads(t *testing.T) {
	srv, _ := newHeadsServer(t, false)
	rec := &headRecorder{}

	hw := NewHeadWatcher(HeadWatcherConfig{Endpoint: wsURL(srv), OnHead: rec.record})
	require.NoError(t, hw.Connect(context.Background()))
	defer hw.Disconnect()

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	head := rec.snapshot()[0]
	assert.Equal(t, int64(101), head.Number.ToInt().Int64())
	assert.Equal(t, int64(30_000_000_000), head.BaseFee.ToInt().Int64())
	assert.Equal(t, uint64(0x65a0f000), uint64(head.Timestamp))
	assert.Equal(t, "0xsub1", hw.SubscriptionID())
	assert.True(t, hw.IsConnected())

	require.NoError(t, hw.Disconnect())
	assert.False(t, hw.IsConnected())
	assert.Equal(t, "", hw.SubscriptionID())
}

func TestHeadWatcherReconnects(t *testing.T) {
	srv, connections := newHeadsServer(t, true)
	rec := &headRecorder{}

	hw := NewHeadWatcher(HeadWatcherConfig{
		Endpoint:          wsURL(srv),
		ReconnectInterval: 10 * time.Millisecond,
		OnHead:            rec.record,
	})
	require.NoError(t, hw.Connect(context.Background()))

	assert.Eventually(t, func() bool { return len(rec.snapshot()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, hw.Disconnect())

	heads := rec.snapshot()
	assert.Equal(t, int64(101), heads[0].Number.ToInt().Int64())
	assert.Equal(t, int64(102), heads[1].Number.ToInt().Int64())
	assert.GreaterOrEqual(t, connections.Load(), int32(3))
}

func TestHeadWatcherConnectError(t *testing.T) {
	hw := NewHeadWatcher(HeadWatcherConfig{Endpoint: "ws://127.0.0.1:1"})
	assert.Error(t, hw.Connect(context.Background()))
	assert.False(t, hw.IsConnected())
}

func TestHeadWatcherReportsRPCErrors(t *testing.T) {
	var mu sync.Mutex
	var errs []error

	hw := NewHeadWatcher(HeadWatcherConfig{OnError: func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}})

	msg, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"error":   map[string]interface{}{"code": -32601, "message": "notifications not supported"},
	})
	require.NoError(t, err)

	hw.handleMessage(msg)
	hw.handleMessage([]byte("not json"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "notifications not supported")
}
