package realtime

import "encoding/json"

// EventType 标识一次已提交的行级变更种类。
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event 是在 Redis 频道上传播的变更事件载荷。
// Row 为变更后的完整行；OldRow 在 UPDATE/DELETE 时携带变更前的行。
type Event struct {
	Type   EventType       `json:"type"`
	Table  string          `json:"table"`
	Row    json.RawMessage `json:"row,omitempty"`
	OldRow json.RawMessage `json:"old_row,omitempty"`
}

// Channel 返回指定表的变更频道名。
func Channel(table string) string {
	return "listings:" + table
}
