package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"carelistings/internal/metrics"
)

// Publisher 在写操作提交后把变更事件发布到对应表的 Redis 频道。
// 发布失败不会回滚写操作，由调用方决定是否仅记录日志。
type Publisher struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewPublisher 构造 Publisher。
func NewPublisher(client redis.UniversalClient, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, logger: logger}
}

// Publish 序列化并发布一条变更事件。row/oldRow 可以为 nil。
func (p *Publisher) Publish(ctx context.Context, table string, typ EventType, row, oldRow any) error {
	evt := Event{Type: typ, Table: table}

	if row != nil {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal row: %w", err)
		}
		evt.Row = data
	}
	if oldRow != nil {
		data, err := json.Marshal(oldRow)
		if err != nil {
			return fmt.Errorf("marshal old row: %w", err)
		}
		evt.OldRow = data
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	channel := Channel(table)
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %q: %w", channel, err)
	}

	metrics.CountListingChange(table, string(typ))
	p.logger.Debug("change event published",
		slog.String("channel", channel),
		slog.String("type", string(typ)),
	)
	return nil
}
