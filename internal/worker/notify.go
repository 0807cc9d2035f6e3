package worker

// 推送给移动端/管理端的统一通知协议（通过 Redis Pub/Sub 转发）。
// 字段名与客户端解析保持一致。
type ListingNotifyMessage struct {
	Channel       string `json:"channel"`
	Table         string `json:"table"`
	ListingID     string `json:"listing_id"`
	Title         string `json:"title"`
	Event         string `json:"event"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
}
