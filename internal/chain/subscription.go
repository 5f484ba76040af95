package chain

import (
	"sync"

	"github.com/zakimal/zero-chain-ui/internal/status"
)

// Subscription 一笔交易的状态流。终态之后或 Unsubscribe 之后 Updates 会被关闭。
type Subscription interface {
	Updates() <-chan status.TransactionStatus
	Unsubscribe()
}

// Stream 无界缓冲的 Subscription 实现，生产者 Push 永远不会阻塞
type Stream struct {
	mu      sync.Mutex
	queue   []status.TransactionStatus
	closing bool
	stopped bool
	wake    chan struct{}
	out     chan status.TransactionStatus
	once    sync.Once
	onStop  func()
}

// NewStream onStop 在 Unsubscribe 时调用一次，用于通知生产者
func NewStream(onStop func()) *Stream {
	s := &Stream{
		wake:   make(chan struct{}, 1),
		out:    make(chan status.TransactionStatus),
		onStop: onStop,
	}
	go s.pump()
	return s
}

func (s *Stream) Updates() <-chan status.TransactionStatus {
	return s.out
}

// Push 追加一个状态，终态会在送达后关闭流
func (s *Stream) Push(st status.TransactionStatus) {
	s.mu.Lock()
	if s.closing || s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, st)
	if st.IsTerminal() {
		s.closing = true
	}
	s.mu.Unlock()
	s.signal()
}

// Close 送完已排队的状态后关闭流
func (s *Stream) Close() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.signal()
}

func (s *Stream) Unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.queue = nil
		s.mu.Unlock()
		s.signal()
		if s.onStop != nil {
			s.onStop()
		}
	})
}

func (s *Stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Stream) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			done := s.closing
			s.mu.Unlock()
			if done {
				return
			}
			<-s.wake
			continue
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- next:
		case <-s.wake:
			// 被唤醒可能是 Unsubscribe，放回队首重新检查
			s.mu.Lock()
			if !s.stopped {
				s.queue = append([]status.TransactionStatus{next}, s.queue...)
			}
			s.mu.Unlock()
		}
	}
}
