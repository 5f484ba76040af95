package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/internal/handler/request"
	"github.com/zakimal/zero-chain-ui/internal/handler/response"
	"github.com/zakimal/zero-chain-ui/internal/repository"
	"github.com/zakimal/zero-chain-ui/internal/service"
	"github.com/zakimal/zero-chain-ui/internal/status"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

const streamWriteTimeout = 5 * time.Second

type TransferHandler struct {
	svc      *service.TransferService
	upgrader websocket.Upgrader
}

func NewTransferHandler(svc *service.TransferService) *TransferHandler {
	return &TransferHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Create 发起一笔机密转账，立即返回 pending 记录
// POST /api/v1/transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var req request.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	rec, err := h.svc.Submit(c.Request.Context(), service.TransferRequest{
		From:   req.From,
		To:     req.To,
		Amount: req.Amount,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, rec)
}

// CreateRaw 提交手工填写的证明与密文
// POST /api/v1/transfers/raw
func (h *TransferHandler) CreateRaw(c *gin.Context) {
	var req request.RawTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	rec, err := h.svc.SubmitRaw(c.Request.Context(), service.RawTransfer{
		Proof:            req.Proof,
		AddressSender:    req.AddressSender,
		AddressRecipient: req.AddressRecipient,
		ValueSender:      req.ValueSender,
		ValueRecipient:   req.ValueRecipient,
		BalanceSender:    req.BalanceSender,
		Rk:               req.Rk,
		Rsk:              req.Rsk,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, rec)
}

// List GET /api/v1/transfers?sender=&limit=
func (h *TransferHandler) List(c *gin.Context) {
	var req request.ListTransfersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	list, err := h.svc.List(c.Request.Context(), repository.ListFilter{Sender: req.Sender, Limit: req.Limit})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, list)
}

// Get GET /api/v1/transfers/:id
func (h *TransferHandler) Get(c *gin.Context) {
	rec, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, rec)
}

// Snapshot 推送给 websocket 客户端的一帧
type Snapshot struct {
	Type         string               `json:"type"` // record | status
	Record       interface{}          `json:"record,omitempty"`
	Status       string               `json:"status,omitempty"`
	Presentation *status.Presentation `json:"presentation,omitempty"`
	Progress     *status.Progress     `json:"progress,omitempty"`
	Label        string               `json:"label,omitempty"`
	Block        string               `json:"block,omitempty"`
	Reason       string               `json:"reason,omitempty"`
	Done         bool                 `json:"done"`
}

func snapshotOf(w *service.TransferWatch, done bool) Snapshot {
	snap := Snapshot{Type: "status", Done: done}
	p, _ := w.Progress.Get()
	snap.Progress = &p
	if st, ok := w.Status.Get(); ok {
		pres := status.Present(st)
		snap.Status = st.Kind.String()
		snap.Presentation = &pres
		snap.Label = status.PlainLabel(&st, p)
		snap.Block = st.Block
		snap.Reason = st.Reason
	}
	return snap
}

// Stream 先推送当前记录，转账仍在跟踪时继续推送状态快照直到终态。
// 状态变化很快时相邻的变化会合并成一帧，最后一帧 done=true 一定是最终状态。
// GET /api/v1/transfers/:id/stream (websocket)
func (h *TransferHandler) Stream(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.String("transfer", id), zap.Error(err))
		return
	}
	defer conn.Close()

	write := func(v interface{}) error {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		return conn.WriteJSON(v)
	}
	if err := write(Snapshot{Type: "record", Record: rec, Done: rec.Terminal}); err != nil {
		return
	}

	w, err := h.svc.Watch(id)
	if errors.Is(err, service.ErrNotActive) {
		// 已经结束，记录就是最终结果
		closeStream(conn)
		return
	}
	if err != nil {
		return
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticks := make(chan struct{}, 1)
	notify := func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	}
	stopStatus := w.Status.Subscribe(func(status.TransactionStatus) { notify() })
	defer stopStatus()
	stopProgress := w.Progress.Subscribe(func(status.Progress) { notify() })
	defer stopProgress()

	for {
		select {
		case <-ticks:
			if err := write(snapshotOf(w, false)); err != nil {
				return
			}
		case <-w.Done:
			if err := write(snapshotOf(w, true)); err == nil {
				closeStream(conn)
			}
			return
		case <-gone:
			return
		}
	}
}

func closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
