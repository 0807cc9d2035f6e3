package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeListingNotify = "listing:notify"
)

// ListingNotifyPayload 描述一次需要推送给订阅者的目录变更。
// Channel 是客户端订阅的推送主题（培训条目的 notificationChannel，
// 新职位统一走 "new-jobs"）。
type ListingNotifyPayload struct {
	Channel       string `json:"channel"`
	Table         string `json:"table"`
	ListingID     string `json:"listing_id"`
	Title         string `json:"title"`
	Event         string `json:"event"`
	CorrelationID string `json:"correlation_id"`
}

// JobsChannel 是新职位通知的固定主题。
const JobsChannel = "new-jobs"

// NewListingNotifyTask 构造一个目录变更推送任务。
func NewListingNotifyTask(payload ListingNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeListingNotify, data), nil
}
