package listings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"carelistings/internal/database"
	"carelistings/internal/realtime"
)

// TableJobs 是职位记录的逻辑表名，同时作为变更频道的名字空间。
const TableJobs = "jobs"

// Sort 指定列表的排序契约。
type Sort string

const (
	// SortDateDesc 最新创建的在前（Job 的默认排序）。
	SortDateDesc Sort = "date-desc"
	// SortTitleAsc 按标题字母序（Training 的默认排序）。
	SortTitleAsc Sort = "title-asc"
)

// JobInput 描述创建职位所需的全部字段。
type JobInput struct {
	Title            string     `json:"title"`
	Location         string     `json:"location"`
	Company          string     `json:"company"`
	EmploymentType   string     `json:"employmentType"`
	Summary          string     `json:"summary"`
	Qualifications   StringList `json:"qualifications"`
	Responsibilities StringList `json:"responsibilities"`
	ReportsTo        string     `json:"reportsTo"`
}

// JobPatch 描述部分更新；nil 字段保持不变。
// id 与 created_at 不在此结构中，客户端无法改写它们。
type JobPatch struct {
	Title            *string     `json:"title"`
	Location         *string     `json:"location"`
	Company          *string     `json:"company"`
	EmploymentType   *string     `json:"employmentType"`
	Summary          *string     `json:"summary"`
	Qualifications   *StringList `json:"qualifications"`
	Responsibilities *StringList `json:"responsibilities"`
	ReportsTo        *string     `json:"reportsTo"`
}

// JobRepository 提供职位的增删改查：负责字段校验、序列字段规整，
// 并在每次提交写入后发布变更事件。
type JobRepository struct {
	db     *gorm.DB
	feed   *realtime.Publisher
	logger *slog.Logger
}

// NewJobRepository 构造 JobRepository；feed 可以为 nil（只读场景）。
func NewJobRepository(db *gorm.DB, feed *realtime.Publisher, logger *slog.Logger) *JobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRepository{db: db, feed: feed, logger: logger}
}

// List 返回全部职位。没有任何行时返回空切片而非错误。
func (r *JobRepository) List(ctx context.Context, sort Sort) ([]JobView, error) {
	order := "created_at DESC"
	if sort == SortTitleAsc {
		order = "title ASC"
	}

	var jobs []database.Job
	if err := r.db.WithContext(ctx).Order(order).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return NewJobViews(jobs), nil
}

// GetByID 按 id 查找职位；未命中返回 ErrNotFound。
func (r *JobRepository) GetByID(ctx context.Context, id string) (*JobView, error) {
	var job database.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	view := NewJobView(job)
	return &view, nil
}

// Create 校验必填字段后插入新职位，id 与时间戳由持久层分配。
func (r *JobRepository) Create(ctx context.Context, input JobInput) (*JobView, error) {
	if err := validateJobInput(input); err != nil {
		return nil, err
	}

	job := database.Job{
		Title:            strings.TrimSpace(input.Title),
		Location:         strings.TrimSpace(input.Location),
		Company:          strings.TrimSpace(input.Company),
		EmploymentType:   input.EmploymentType,
		Summary:          input.Summary,
		Qualifications:   datatypes.JSONSlice[string](input.Qualifications.Normalize()),
		Responsibilities: datatypes.JSONSlice[string](input.Responsibilities.Normalize()),
		ReportsTo:        input.ReportsTo,
	}

	if err := r.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	view := NewJobView(job)
	r.publish(ctx, realtime.EventInsert, &view, nil)
	return &view, nil
}

// Update 对现有职位做部分更新；updated_at 随之刷新，created_at 不变。
func (r *JobRepository) Update(ctx context.Context, id string, patch JobPatch) (*JobView, error) {
	var job database.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	oldView := NewJobView(job)

	updates := map[string]any{}
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if err := requireNonEmpty("title", trimmed); err != nil {
			return nil, err
		}
		updates["title"] = trimmed
	}
	if patch.Location != nil {
		trimmed := strings.TrimSpace(*patch.Location)
		if err := requireNonEmpty("location", trimmed); err != nil {
			return nil, err
		}
		updates["location"] = trimmed
	}
	if patch.Company != nil {
		trimmed := strings.TrimSpace(*patch.Company)
		if err := requireNonEmpty("company", trimmed); err != nil {
			return nil, err
		}
		updates["company"] = trimmed
	}
	if patch.EmploymentType != nil {
		updates["employment_type"] = *patch.EmploymentType
	}
	if patch.Summary != nil {
		updates["summary"] = *patch.Summary
	}
	if patch.Qualifications != nil {
		updates["qualifications"] = datatypes.JSONSlice[string](patch.Qualifications.Normalize())
	}
	if patch.Responsibilities != nil {
		updates["responsibilities"] = datatypes.JSONSlice[string](patch.Responsibilities.Normalize())
	}
	if patch.ReportsTo != nil {
		updates["reports_to"] = *patch.ReportsTo
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(&job).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update job %s: %w", id, err)
		}
		if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
			return nil, fmt.Errorf("reload job %s: %w", id, err)
		}
	}

	view := NewJobView(job)
	r.publish(ctx, realtime.EventUpdate, &view, &oldView)
	return &view, nil
}

// Delete 删除指定职位。id 不存在按成功处理（幂等），此时不发布事件。
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	var job database.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load job %s: %w", id, err)
	}

	if err := r.db.WithContext(ctx).Delete(&database.Job{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}

	oldView := NewJobView(job)
	r.publish(ctx, realtime.EventDelete, nil, &oldView)
	return nil
}

func (r *JobRepository) publish(ctx context.Context, typ realtime.EventType, row, oldRow *JobView) {
	if r.feed == nil {
		return
	}
	var rowAny, oldAny any
	if row != nil {
		rowAny = row
	}
	if oldRow != nil {
		oldAny = oldRow
	}
	if err := r.feed.Publish(ctx, TableJobs, typ, rowAny, oldAny); err != nil {
		// 发布失败不影响已提交的写入，订阅端靠重连后的全量拉取兜底。
		r.logger.Error("publish job change failed",
			slog.String("type", string(typ)),
			slog.Any("error", err),
		)
	}
}

func validateJobInput(input JobInput) error {
	if err := requireNonEmpty("title", strings.TrimSpace(input.Title)); err != nil {
		return err
	}
	if err := requireNonEmpty("location", strings.TrimSpace(input.Location)); err != nil {
		return err
	}
	return requireNonEmpty("company", strings.TrimSpace(input.Company))
}
