// Package admin 是可嵌入的管理端会话组件，把仓储与实时变更桥接到
// 管理界面：持有可见列表的内存投影、每个表单的在途标志，并暴露增删改
// 意图。管理界面宿主按会话实例化 Controller 并代理其回调；本服务的
// 二进制不直接引用本包。
package admin

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"carelistings/internal/listings"
	"carelistings/internal/realtime"
)

// FormNew 是"新建"表单的在途标志键；编辑/删除表单以条目 id 为键。
const FormNew = "new"

// ErrBusy 表示同一表单已有一次提交在途，本次被拒绝。
var ErrBusy = errors.New("another submit is in flight")

const resyncTimeout = 15 * time.Second

// Controller 绑定一种实体的仓储操作与本地缓存。
// 同一表单同时只允许一次在途提交；加载失败保留旧数据并置错误标志。
type Controller[T, In, P any] struct {
	list   func(context.Context) ([]T, error)
	create func(context.Context, In) (*T, error)
	update func(context.Context, string, P) (*T, error)
	remove func(context.Context, string) error

	cache  *realtime.Cache[T]
	logger *slog.Logger

	mu         sync.Mutex
	inFlight   map[string]bool
	loadFailed bool
	lastError  string
}

// NewJobController 构造职位管理控制器。
func NewJobController(repo *listings.JobRepository, logger *slog.Logger) *Controller[listings.JobView, listings.JobInput, listings.JobPatch] {
	return newController(
		func(v listings.JobView) string { return v.ID },
		func(ctx context.Context) ([]listings.JobView, error) { return repo.List(ctx, listings.SortDateDesc) },
		repo.Create,
		repo.Update,
		repo.Delete,
		logger,
	)
}

// NewTrainingController 构造培训管理控制器。
func NewTrainingController(repo *listings.TrainingRepository, logger *slog.Logger) *Controller[listings.TrainingView, listings.TrainingInput, listings.TrainingPatch] {
	return newController(
		func(v listings.TrainingView) string { return v.ID },
		func(ctx context.Context) ([]listings.TrainingView, error) { return repo.List(ctx, listings.SortTitleAsc) },
		repo.Create,
		repo.Update,
		repo.Delete,
		logger,
	)
}

func newController[T, In, P any](
	idOf func(T) string,
	list func(context.Context) ([]T, error),
	create func(context.Context, In) (*T, error),
	update func(context.Context, string, P) (*T, error),
	remove func(context.Context, string) error,
	logger *slog.Logger,
) *Controller[T, In, P] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller[T, In, P]{
		list:     list,
		create:   create,
		update:   update,
		remove:   remove,
		cache:    realtime.NewCache(idOf),
		logger:   logger,
		inFlight: map[string]bool{},
	}
}

// Load 全量拉取并替换本地投影。失败时保留旧数据、置错误标志：
// 过期但仍可见的数据优于白屏。
func (c *Controller[T, In, P]) Load(ctx context.Context) error {
	rows, err := c.list(ctx)
	if err != nil {
		c.mu.Lock()
		c.loadFailed = true
		c.lastError = err.Error()
		c.mu.Unlock()
		return err
	}
	c.cache.Replace(rows)
	c.clearError()
	return nil
}

// Rows 返回当前投影的拷贝。
func (c *Controller[T, In, P]) Rows() []T {
	return c.cache.Rows()
}

// LoadFailed 返回上次加载是否失败。
func (c *Controller[T, In, P]) LoadFailed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadFailed
}

// LastError 返回最近一次失败的用户可见消息，成功后清空。
func (c *Controller[T, In, P]) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Saving 返回指定表单是否有在途提交（用于禁用触发控件）。
func (c *Controller[T, In, P]) Saving(formID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[formID]
}

// SubmitCreate 提交新建意图。成功后依赖变更事件把新行并入投影。
func (c *Controller[T, In, P]) SubmitCreate(ctx context.Context, input In) (*T, error) {
	if !c.begin(FormNew) {
		return nil, ErrBusy
	}
	defer c.end(FormNew)

	created, err := c.create(ctx, input)
	if err != nil {
		c.setError(err.Error())
		return nil, err
	}
	c.clearError()
	return created, nil
}

// SubmitUpdate 提交编辑意图。失败时表单内容由调用方保留以便重试。
func (c *Controller[T, In, P]) SubmitUpdate(ctx context.Context, id string, patch P) (*T, error) {
	if !c.begin(id) {
		return nil, ErrBusy
	}
	defer c.end(id)

	updated, err := c.update(ctx, id, patch)
	if err != nil {
		c.setError(err.Error())
		return nil, err
	}
	c.clearError()
	return updated, nil
}

// SubmitDelete 提交删除意图。成功后立即从投影移除该行（乐观），
// 不等待变更事件：事件可能在界面已经离开之后才到。
func (c *Controller[T, In, P]) SubmitDelete(ctx context.Context, id string) error {
	if !c.begin(id) {
		return ErrBusy
	}
	defer c.end(id)

	if err := c.remove(ctx, id); err != nil {
		c.setError(err.Error())
		return err
	}
	c.cache.Remove(id)
	c.clearError()
	return nil
}

// ApplyEvent 把一条变更事件并入投影。
func (c *Controller[T, In, P]) ApplyEvent(evt realtime.Event) {
	if err := c.cache.Apply(evt); err != nil {
		c.logger.Warn("apply change event failed", slog.Any("error", err))
	}
}

// Watch 订阅指定表的变更频道并把事件并入投影。
// 重连后的 Live 回调触发一次全量拉取，补齐断线期间丢失的事件。
func (c *Controller[T, In, P]) Watch(client redis.UniversalClient, table string) *realtime.Subscription {
	return realtime.Subscribe(client, table, c.ApplyEvent,
		realtime.WithLogger(c.logger),
		realtime.WithOnLive(func(resumed bool) {
			if !resumed {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
			defer cancel()
			if err := c.Load(ctx); err != nil {
				c.logger.Warn("resync after reconnect failed", slog.Any("error", err))
			}
		}),
	)
}

func (c *Controller[T, In, P]) begin(formID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[formID] {
		return false
	}
	c.inFlight[formID] = true
	return true
}

func (c *Controller[T, In, P]) end(formID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, formID)
}

func (c *Controller[T, In, P]) setError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = msg
}

func (c *Controller[T, In, P]) clearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadFailed = false
	c.lastError = ""
}
