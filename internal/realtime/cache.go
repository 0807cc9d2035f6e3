package realtime

import (
	"encoding/json"
	"sync"
)

// Cache 维护一份按到达顺序排列的行投影，并按确定且幂等的规则合并变更事件。
//
// 合并规则：
//   - Insert：id 不存在则追加，已存在则按 Update 处理；
//   - Update：按 OldRow 的 id（缺省回落到 Row 的 id）替换，找不到则按 Insert 处理；
//   - Delete：按 OldRow 的 id 移除，不存在则为空操作。
//
// 本地乐观修改可能被迟到的事件短暂覆盖，再被后续事件纠正（last writer via
// realtime wins）。这是已知的一致性缺口，低并发的管理场景下可以接受。
type Cache[T any] struct {
	mu   sync.Mutex
	rows []T
	idOf func(T) string
}

// NewCache 构造 Cache；idOf 从行中取出其不透明 id。
func NewCache[T any](idOf func(T) string) *Cache[T] {
	return &Cache[T]{idOf: idOf}
}

// Replace 用一次全量拉取的结果覆盖整个投影。
func (c *Cache[T]) Replace(rows []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows[:0], rows...)
}

// Rows 返回当前投影的拷贝。
func (c *Cache[T]) Rows() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.rows))
	copy(out, c.rows)
	return out
}

// Len 返回当前条目数。
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// Remove 按 id 删除一行（用于提交删除后的乐观移除）。不存在则为空操作。
func (c *Cache[T]) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

// Apply 把一条已解码的变更事件合并进投影。
func (c *Cache[T]) Apply(evt Event) error {
	var row, oldRow *T
	if len(evt.Row) > 0 {
		decoded := new(T)
		if err := json.Unmarshal(evt.Row, decoded); err != nil {
			return err
		}
		row = decoded
	}
	if len(evt.OldRow) > 0 {
		decoded := new(T)
		if err := json.Unmarshal(evt.OldRow, decoded); err != nil {
			return err
		}
		oldRow = decoded
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch evt.Type {
	case EventInsert:
		if row != nil {
			c.upsertLocked(c.idOf(*row), *row)
		}
	case EventUpdate:
		if row == nil {
			return nil
		}
		target := c.idOf(*row)
		if oldRow != nil {
			target = c.idOf(*oldRow)
		}
		if !c.replaceLocked(target, *row) {
			// 没有匹配行时按插入处理，容忍乱序投递。
			c.upsertLocked(c.idOf(*row), *row)
		}
	case EventDelete:
		if oldRow != nil {
			c.removeLocked(c.idOf(*oldRow))
		}
	}
	return nil
}

func (c *Cache[T]) indexLocked(id string) int {
	for i, r := range c.rows {
		if c.idOf(r) == id {
			return i
		}
	}
	return -1
}

func (c *Cache[T]) upsertLocked(id string, row T) {
	if i := c.indexLocked(id); i >= 0 {
		c.rows[i] = row
		return
	}
	c.rows = append(c.rows, row)
}

func (c *Cache[T]) replaceLocked(id string, row T) bool {
	if i := c.indexLocked(id); i >= 0 {
		c.rows[i] = row
		return true
	}
	return false
}

func (c *Cache[T]) removeLocked(id string) {
	if i := c.indexLocked(id); i >= 0 {
		c.rows = append(c.rows[:i], c.rows[i+1:]...)
	}
}
