package wsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/codec"
	"github.com/zakimal/zero-chain-ui/internal/status"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

// Server 把一个 chain.Client (通常是 simnet.Node) 暴露为 websocket JSON-RPC
type Server struct {
	backend  chain.Client
	reg      *codec.Registry
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewServer(backend chain.Client, reg *codec.Registry) *Server {
	if reg == nil {
		reg = codec.Default()
	}
	return &Server{
		backend: backend,
		reg:     reg,
		log:     logger.Named("wsrpc.server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &serverConn{srv: s, conn: conn, subs: make(map[string]chain.Subscription)}
	c.serve(r.Context())
}

type serverConn struct {
	srv  *Server
	conn *websocket.Conn

	writeMu sync.Mutex
	mu      sync.Mutex
	subs    map[string]chain.Subscription
	wg      sync.WaitGroup
}

func (c *serverConn) write(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *serverConn) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.mu.Lock()
		for id, sub := range c.subs {
			sub.Unsubscribe()
			delete(c.subs, id)
		}
		c.mu.Unlock()
		c.wg.Wait()
		_ = c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.srv.log.Debug("connection closed", zap.Error(err))
			}
			return
		}
		var req message
		if err := json.Unmarshal(data, &req); err != nil || req.ID == nil {
			_ = c.write(message{Version: "2.0", Error: newError(codeParseError, "invalid request")})
			continue
		}

		resp := message{Version: "2.0", ID: req.ID}
		result, after, err := c.handle(ctx, req)
		if err != nil {
			var rpcErr *Error
			if !errors.As(err, &rpcErr) {
				rpcErr = newError(codeServerError, "%v", err)
			}
			resp.Error = rpcErr
		} else {
			raw, merr := json.Marshal(result)
			if merr != nil {
				resp.Error = newError(codeServerError, "%v", merr)
			}
			resp.Result = raw
		}
		if err := c.write(resp); err != nil {
			return
		}
		// 订阅在响应写出之后才开始推送，保证客户端先拿到订阅 id
		if after != nil && resp.Error == nil {
			after()
		}
	}
}

func (c *serverConn) handle(ctx context.Context, req message) (interface{}, func(), error) {
	backend := c.srv.backend
	switch req.Method {
	case MethodName, MethodVersion, MethodChain, MethodRuntimeVersion, MethodHeight, MethodAuthorities:
		info, err := backend.SystemInfo(ctx)
		if err != nil {
			return nil, nil, err
		}
		switch req.Method {
		case MethodName:
			return info.Name, nil, nil
		case MethodVersion:
			return info.Version, nil, nil
		case MethodChain:
			return info.Chain, nil, nil
		case MethodRuntimeVersion:
			return info.Runtime, nil, nil
		case MethodHeight:
			return hexutil.Uint64(info.Height), nil, nil
		default:
			return info.Authorities, nil, nil
		}

	case MethodBalance, MethodAccountNonce, MethodEncryptedBalance:
		var id chain.AccountID
		if err := parseParams(req.Params, &id); err != nil {
			return nil, nil, err
		}
		switch req.Method {
		case MethodBalance:
			v, err := backend.Balance(ctx, id)
			return hexutil.Uint64(v), nil, err
		case MethodAccountNonce:
			v, err := backend.AccountNonce(ctx, id)
			return hexutil.Uint64(v), nil, err
		default:
			v, err := backend.EncryptedBalance(ctx, id)
			return hexutil.Bytes(v), nil, err
		}

	case MethodSubmitAndWatch:
		var raw hexutil.Bytes
		if err := parseParams(req.Params, &raw); err != nil {
			return nil, nil, err
		}
		xt, err := chain.DecodeExtrinsic(c.srv.reg, raw)
		if err != nil {
			return nil, nil, newError(codeInvalidParams, "decode extrinsic: %v", err)
		}
		sub, err := backend.Submit(ctx, xt)
		if err != nil {
			return nil, nil, err
		}
		id := uuid.NewString()
		c.mu.Lock()
		c.subs[id] = sub
		c.mu.Unlock()
		return id, func() { c.forward(id, sub) }, nil

	case MethodUnwatch:
		var id string
		if err := parseParams(req.Params, &id); err != nil {
			return nil, nil, err
		}
		c.mu.Lock()
		sub, ok := c.subs[id]
		delete(c.subs, id)
		c.mu.Unlock()
		if ok {
			sub.Unsubscribe()
		}
		return ok, nil, nil
	}
	return nil, nil, newError(codeMethodNotFound, "method %s not found", req.Method)
}

func (c *serverConn) forward(id string, sub chain.Subscription) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for st := range sub.Updates() {
			params, _ := json.Marshal(notification{Subscription: id, Result: status.Encode(st)})
			if err := c.write(message{Version: "2.0", Method: NotifyExtrinsicUpdate, Params: params}); err != nil {
				sub.Unsubscribe()
				return
			}
		}
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}()
}
