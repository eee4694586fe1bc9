package rangeorders

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Ping interval
	HeartbeatInterval = 30 * time.Second

	// Reconnect settings
	DefaultReconnectInterval    = 5 * time.Second
	DefaultMaxReconnectAttempts = 10

	writeTimeout = 10 * time.Second
)

// BlockHeader is the part of a newHeads notification the watcher decodes
type BlockHeader struct {
	Number    *hexutil.Big   `json:"number"`
	Hash      common.Hash    `json:"hash"`
	BaseFee   *hexutil.Big   `json:"baseFeePerGas"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcMessage struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params *struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

// HeadHandler is called for every new block header
type HeadHandler func(head BlockHeader)

// WSErrorHandler is a callback function for handling WebSocket errors
type WSErrorHandler func(err error)

// HeadWatcherConfig holds configuration for the head watcher
type HeadWatcherConfig struct {
	Endpoint             string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	PingInterval         time.Duration
	OnHead               HeadHandler
	OnError              WSErrorHandler
	OnConnect            func()
	Logger               *zap.Logger
}

// HeadWatcher follows new block headers over an eth_subscribe WebSocket
type HeadWatcher struct {
	config HeadWatcherConfig
	logger *zap.Logger

	mu               sync.RWMutex
	conn             *websocket.Conn
	isConnected      bool
	closed           bool
	subscriptionID   string
	parent           context.Context
	cancel           context.CancelFunc
	reconnectAttempt int

	writeMu sync.Mutex
	nextID  atomic.Uint64
}

// NewHeadWatcher creates a new head watcher
func NewHeadWatcher(config HeadWatcherConfig) *HeadWatcher {
	if config.ReconnectInterval == 0 {
		config.ReconnectInterval = DefaultReconnectInterval
	}
	if config.MaxReconnectAttempts == 0 {
		config.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if config.PingInterval == 0 {
		config.PingInterval = HeartbeatInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HeadWatcher{
		config: config,
		logger: logger.Named("head_watcher"),
	}
}

// Connect dials the endpoint and subscribes to new heads.
// ctx bounds the watcher's lifetime, including reconnects.
func (hw *HeadWatcher) Connect(ctx context.Context) error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if hw.isConnected {
		return nil
	}
	hw.closed = false
	hw.parent = ctx

	return hw.connectLocked()
}

// connectLocked must be called with mu held
func (hw *HeadWatcher) connectLocked() error {
	ctx, cancel := context.WithCancel(hw.parent)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, hw.config.Endpoint, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      hw.nextID.Add(1),
		Method:  "eth_subscribe",
		Params:  []interface{}{"newHeads"},
	}
	if err := hw.write(conn, req); err != nil {
		cancel()
		conn.Close()
		return err
	}

	hw.conn = conn
	hw.cancel = cancel
	hw.isConnected = true
	hw.reconnectAttempt = 0

	go hw.heartbeat(ctx, conn)
	go hw.readLoop(ctx, conn)

	hw.logger.Info("Connected to head subscription", zap.String("endpoint", hw.config.Endpoint))
	if hw.config.OnConnect != nil {
		go hw.config.OnConnect()
	}

	return nil
}

// Disconnect closes the connection and stops reconnecting
func (hw *HeadWatcher) Disconnect() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	hw.closed = true
	return hw.disconnectLocked()
}

// disconnectLocked must be called with mu held
func (hw *HeadWatcher) disconnectLocked() error {
	if !hw.isConnected {
		return nil
	}

	hw.isConnected = false
	hw.subscriptionID = ""
	if hw.cancel != nil {
		hw.cancel()
	}

	var err error
	if hw.conn != nil {
		_ = hw.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = hw.conn.Close()
		hw.conn = nil
	}
	return err
}

// IsConnected returns the current connection status
func (hw *HeadWatcher) IsConnected() bool {
	hw.mu.RLock()
	defer hw.mu.RUnlock()
	return hw.isConnected
}

// SubscriptionID returns the node's id for the active subscription
func (hw *HeadWatcher) SubscriptionID() string {
	hw.mu.RLock()
	defer hw.mu.RUnlock()
	return hw.subscriptionID
}

func (hw *HeadWatcher) write(conn *websocket.Conn, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	hw.writeMu.Lock()
	defer hw.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// heartbeat pings the node until ctx ends
func (hw *HeadWatcher) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(hw.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				hw.reportError(fmt.Errorf("heartbeat failed: %w", err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// readLoop continuously reads messages from conn
func (hw *HeadWatcher) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				hw.reportError(fmt.Errorf("read error: %w", err))
			}
			hw.handleDisconnect(conn)
			return
		}

		hw.handleMessage(data)
	}
}

func (hw *HeadWatcher) handleMessage(data []byte) {
	var msg rpcMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		hw.reportError(fmt.Errorf("failed to decode message: %w", err))
		return
	}

	switch {
	case msg.Error != nil:
		hw.reportError(fmt.Errorf("subscription error %d: %s", msg.Error.Code, msg.Error.Message))
	case msg.ID != nil:
		var id string
		if err := json.Unmarshal(msg.Result, &id); err != nil {
			hw.reportError(fmt.Errorf("failed to decode subscription id: %w", err))
			return
		}
		hw.mu.Lock()
		hw.subscriptionID = id
		hw.mu.Unlock()
	case msg.Method == "eth_subscription" && msg.Params != nil:
		var head BlockHeader
		if err := json.Unmarshal(msg.Params.Result, &head); err != nil {
			hw.reportError(fmt.Errorf("failed to decode block header: %w", err))
			return
		}
		if hw.config.OnHead != nil {
			hw.config.OnHead(head)
		}
	}
}

// handleDisconnect drops conn and starts reconnecting unless it was already replaced
func (hw *HeadWatcher) handleDisconnect(conn *websocket.Conn) {
	hw.mu.Lock()
	if hw.conn != conn || hw.closed {
		hw.mu.Unlock()
		return
	}
	_ = hw.disconnectLocked()
	hw.mu.Unlock()

	hw.logger.Warn("Head subscription dropped, reconnecting")
	go hw.attemptReconnect()
}

// attemptReconnect attempts to reconnect and resubscribe
func (hw *HeadWatcher) attemptReconnect() {
	for {
		hw.mu.Lock()
		if hw.closed || hw.isConnected {
			hw.mu.Unlock()
			return
		}
		if hw.reconnectAttempt >= hw.config.MaxReconnectAttempts {
			hw.mu.Unlock()
			hw.reportError(fmt.Errorf("max reconnect attempts (%d) reached", hw.config.MaxReconnectAttempts))
			return
		}
		hw.reconnectAttempt++
		attempt := hw.reconnectAttempt
		parent := hw.parent
		hw.mu.Unlock()

		select {
		case <-parent.Done():
			return
		case <-time.After(hw.config.ReconnectInterval):
		}

		hw.mu.Lock()
		if hw.closed {
			hw.mu.Unlock()
			return
		}
		err := hw.connectLocked()
		hw.mu.Unlock()

		if err == nil {
			return
		}
		hw.reportError(fmt.Errorf("reconnect attempt %d failed: %w", attempt, err))
	}
}

func (hw *HeadWatcher) reportError(err error) {
	hw.logger.Debug("Head watcher error", zap.Error(err))
	if hw.config.OnError != nil {
		hw.config.OnError(err)
	}
}
