package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"carelistings/internal/errcode"
	"carelistings/internal/tasks"
)

// NotifyTaskHandler 消费目录变更推送任务，并把通知发布到订阅主题。
type NotifyTaskHandler struct {
	redisClient redis.UniversalClient
	logger      *slog.Logger
}

// NewNotifyTaskHandler 创建任务处理器。
func NewNotifyTaskHandler(redisClient redis.UniversalClient, logger *slog.Logger) *NotifyTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyTaskHandler{
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *NotifyTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ListingNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal notify payload failed", slog.Any("error", err))
		return err
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("listing_id", payload.ListingID),
		slog.String("channel", payload.Channel),
	)

	channel := strings.TrimSpace(payload.Channel)
	if channel == "" {
		// 没有订阅主题的条目不需要推送，任务直接完成。
		log.Info("listing has no notification channel, skipping")
		return nil
	}

	msg := ListingNotifyMessage{
		Channel:       channel,
		Table:         payload.Table,
		ListingID:     payload.ListingID,
		Title:         payload.Title,
		Event:         payload.Event,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notify message: %w", err)
	}

	target := "notify:" + channel
	if err := h.redisClient.Publish(ctx, target, data).Err(); err != nil {
		return fmt.Errorf("publish notification to %q: %w", target, err)
	}

	log.Info("listing notification delivered", slog.String("event", payload.Event))
	return nil
}
