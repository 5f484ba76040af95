package wsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/codec"
	"github.com/zakimal/zero-chain-ui/internal/status"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

const (
	unwatchTimeout = 5 * time.Second

	// 提前到达的通知最多缓存这么多个订阅，每个订阅最多 maxOrphanUpdates 条
	maxOrphanSubs    = 128
	maxOrphanUpdates = 16

	// 已结束的订阅 id，之后到达的通知直接丢弃
	maxRetiredSubs = 1024
)

// Client websocket JSON-RPC 节点客户端，实现 chain.Client
type Client struct {
	conn *websocket.Conn
	reg  *codec.Registry
	log  *zap.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan message
	subs    map[string]*chain.Stream
	// orphans 订阅 id 还没登记时先到的通知: id -> []json.RawMessage
	orphans *lru.Cache
	retired *lru.Cache
	err     error

	done chan struct{}
}

var _ chain.Client = (*Client)(nil)

// Dial 连接节点，例如 ws://127.0.0.1:9944
func Dial(ctx context.Context, url string, reg *codec.Registry) (*Client, error) {
	if reg == nil {
		reg = codec.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsrpc: dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		reg:     reg,
		log:     logger.Named("wsrpc.client"),
		pending: make(map[uint64]chan message),
		subs:    make(map[string]*chain.Stream),
		orphans: mustLRU(maxOrphanSubs),
		retired: mustLRU(maxRetiredSubs),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func mustLRU(size int) *lru.Cache {
	c, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Client) readLoop() {
	var err error
	for {
		var data []byte
		_, data, err = c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg message
		if jerr := json.Unmarshal(data, &msg); jerr != nil {
			c.log.Warn("malformed rpc message", zap.Error(jerr))
			continue
		}
		if msg.ID == nil && msg.Method == NotifyExtrinsicUpdate {
			c.dispatch(msg.Params)
			continue
		}
		if msg.ID == nil {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[*msg.ID]
		delete(c.pending, *msg.ID)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
	c.shutdown(err)
}

func (c *Client) dispatch(params json.RawMessage) {
	var n notification
	if err := json.Unmarshal(params, &n); err != nil {
		c.log.Warn("malformed notification", zap.Error(err))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stream, ok := c.subs[n.Subscription]
	if !ok {
		c.orphanLocked(n.Subscription, n.Result)
		return
	}
	c.deliverLocked(n.Subscription, stream, n.Result)
}

func (c *Client) orphanLocked(id string, raw json.RawMessage) {
	if c.retired.Contains(id) {
		return
	}
	var early []json.RawMessage
	if v, ok := c.orphans.Get(id); ok {
		early = v.([]json.RawMessage)
	}
	if len(early) >= maxOrphanUpdates {
		c.log.Debug("too many early notifications, dropping", zap.String("subscription", id))
		return
	}
	c.orphans.Add(id, append(early, raw))
}

func (c *Client) deliverLocked(id string, stream *chain.Stream, raw json.RawMessage) {
	st, err := status.Decode(raw)
	if err != nil {
		c.log.Warn("undecodable status", zap.String("subscription", id), zap.Error(err))
		return
	}
	stream.Push(st)
	if st.IsTerminal() {
		delete(c.subs, id)
		c.retired.Add(id, struct{}{})
	}
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	if err == nil {
		err = chain.ErrClosed
	}
	c.err = err
	close(c.done)
	for id, stream := range c.subs {
		// 连接断开时没有终态，交给上层处理
		stream.Close()
		delete(c.subs, id)
	}
	c.pending = make(map[uint64]chan message)
}

func (c *Client) call(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return chain.ErrClosed
	}
	c.nextID++
	id := c.nextID
	ch := make(chan message, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err = c.conn.WriteJSON(message{Version: "2.0", ID: &id, Method: method, Params: rawParams})
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("wsrpc: %s: %w", method, err)
	}

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return msg.Error
		}
		if result == nil {
			return nil
		}
		return json.Unmarshal(msg.Result, result)
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	case <-c.done:
		return chain.ErrClosed
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) Submit(ctx context.Context, xt *chain.Extrinsic) (chain.Subscription, error) {
	encoded, err := xt.Encode(c.reg)
	if err != nil {
		return nil, err
	}
	var id string
	if err := c.call(ctx, &id, MethodSubmitAndWatch, hexutil.Bytes(encoded)); err != nil {
		return nil, err
	}

	stream := chain.NewStream(func() { c.unwatch(id) })
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		stream.Close()
		return stream, nil
	}
	c.subs[id] = stream
	var early []json.RawMessage
	if v, ok := c.orphans.Get(id); ok {
		early = v.([]json.RawMessage)
		c.orphans.Remove(id)
	}
	for _, raw := range early {
		c.deliverLocked(id, stream, raw)
	}
	return stream, nil
}

func (c *Client) unwatch(id string) {
	c.mu.Lock()
	_, active := c.subs[id]
	delete(c.subs, id)
	c.retired.Add(id, struct{}{})
	c.mu.Unlock()
	if !active {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), unwatchTimeout)
		defer cancel()
		if err := c.call(ctx, nil, MethodUnwatch, id); err != nil && !errors.Is(err, chain.ErrClosed) {
			c.log.Debug("unwatch failed", zap.String("subscription", id), zap.Error(err))
		}
	}()
}

func (c *Client) Balance(ctx context.Context, id chain.AccountID) (uint64, error) {
	var v hexutil.Uint64
	err := c.call(ctx, &v, MethodBalance, id)
	return uint64(v), err
}

func (c *Client) AccountNonce(ctx context.Context, id chain.AccountID) (uint64, error) {
	var v hexutil.Uint64
	err := c.call(ctx, &v, MethodAccountNonce, id)
	return uint64(v), err
}

func (c *Client) EncryptedBalance(ctx context.Context, id chain.AccountID) ([]byte, error) {
	var v hexutil.Bytes
	err := c.call(ctx, &v, MethodEncryptedBalance, id)
	return v, err
}

func (c *Client) SystemInfo(ctx context.Context) (*chain.SystemInfo, error) {
	info := &chain.SystemInfo{}
	var height hexutil.Uint64
	for _, q := range []struct {
		method string
		out    interface{}
	}{
		{MethodName, &info.Name},
		{MethodVersion, &info.Version},
		{MethodChain, &info.Chain},
		{MethodRuntimeVersion, &info.Runtime},
		{MethodHeight, &height},
		{MethodAuthorities, &info.Authorities},
	} {
		if err := c.call(ctx, q.out, q.method); err != nil {
			return nil, err
		}
	}
	info.Height = uint64(height)
	return info, nil
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}
