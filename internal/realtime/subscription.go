package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// State 表示订阅的生命周期阶段。
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateLive
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	default:
		return "closed"
	}
}

const (
	reconnectBaseDelay = 500 * time.Millisecond
	reconnectMaxDelay  = 30 * time.Second
)

// Subscription 订阅一张表的变更频道，并把事件派发给回调。
//
// 状态机：Closed -> Connecting -> Live -> Closed。频道异常断开时会自动按
// 指数退避重连；断线期间的事件会丢失，因此 onLive 在每次（重）建立订阅后
// 触发，resumed 为 true 时调用方应当重新全量拉取以补齐缺口。
type Subscription struct {
	client  redis.UniversalClient
	table   string
	onEvent func(Event)
	onLive  func(resumed bool)
	logger  *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// SubscriptionOption 调整订阅行为。
type SubscriptionOption func(*Subscription)

// WithOnLive 注册进入 Live 状态时的回调。
func WithOnLive(fn func(resumed bool)) SubscriptionOption {
	return func(s *Subscription) { s.onLive = fn }
}

// WithLogger 指定日志器。
func WithLogger(logger *slog.Logger) SubscriptionOption {
	return func(s *Subscription) { s.logger = logger }
}

// Subscribe 打开对指定表的订阅并启动派发循环。
// onEvent 在单独的 goroutine 中被串行调用，事件顺序与频道投递顺序一致。
func Subscribe(client redis.UniversalClient, table string, onEvent func(Event), opts ...SubscriptionOption) *Subscription {
	s := &Subscription{
		client:  client,
		table:   table,
		onEvent: onEvent,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.setState(StateConnecting)

	go s.run(ctx)
	return s
}

// State 返回当前状态。
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close 终止订阅。返回后不会再有任何事件被派发。
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
	s.setState(StateClosed)
}

func (s *Subscription) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)

	channel := Channel(s.table)
	delay := reconnectBaseDelay
	resumed := false

	for {
		if ctx.Err() != nil {
			return
		}

		s.setState(StateConnecting)
		pubsub := s.client.Subscribe(ctx, channel)

		// Receive 返回订阅确认后才算 Live。
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("subscribe failed, retrying",
				slog.String("channel", channel),
				slog.Duration("delay", delay),
				slog.Any("error", err),
			)
			if !sleepCtx(ctx, delay) {
				return
			}
			delay = nextDelay(delay)
			continue
		}

		s.setState(StateLive)
		if s.onLive != nil {
			s.onLive(resumed)
		}
		resumed = true
		delay = reconnectBaseDelay
		s.logger.Info("change feed live", slog.String("channel", channel))

		// ctx 取消时关闭 pubsub，确保阻塞中的读取立刻返回。
		stop := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = pubsub.Close()
			case <-stop:
			}
		}()

		pumpErr := s.pump(ctx, pubsub)
		close(stop)
		_ = pubsub.Close()

		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("change feed interrupted, reconnecting",
			slog.String("channel", channel),
			slog.Duration("delay", delay),
			slog.Any("error", pumpErr),
		)
		if !sleepCtx(ctx, delay) {
			return
		}
		delay = nextDelay(delay)
	}
}

// pump 串行派发事件，直到读取出错或订阅被关闭。
// 直接用 ReceiveMessage 而不是 Channel()：后者在客户端内部静默重连，
// 断线会被吞掉，外层循环就无法触发 resumed 回调与补偿拉取。
func (s *Subscription) pump(ctx context.Context, pubsub *redis.PubSub) error {
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		var evt Event
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			s.logger.Warn("drop malformed change event",
				slog.String("channel", msg.Channel),
				slog.Any("error", err),
			)
			continue
		}
		s.onEvent(evt)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > reconnectMaxDelay {
		return reconnectMaxDelay
	}
	return d
}
