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

// TableTrainings 是培训记录的逻辑表名，同时作为变更频道的名字空间。
const TableTrainings = "trainings"

// TrainingInput 描述创建培训课程所需的字段。
type TrainingInput struct {
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Image               string     `json:"image"`
	Availability        string     `json:"availability"`
	Duration            string     `json:"duration"`
	NotificationChannel string     `json:"notificationChannel"`
	Price               string     `json:"price"`
	OriginalPrice       string     `json:"originalPrice"`
	ClassHours          string     `json:"classHours"`
	AdditionalDetails   string     `json:"additionalDetails"`
	ScheduleURL         string     `json:"scheduleUrl"`
	Requirements        StringList `json:"requirements"`
}

// TrainingPatch 描述部分更新；nil 字段保持不变。
type TrainingPatch struct {
	Title               *string     `json:"title"`
	Description         *string     `json:"description"`
	Image               *string     `json:"image"`
	Availability        *string     `json:"availability"`
	Duration            *string     `json:"duration"`
	NotificationChannel *string     `json:"notificationChannel"`
	Price               *string     `json:"price"`
	OriginalPrice       *string     `json:"originalPrice"`
	ClassHours          *string     `json:"classHours"`
	AdditionalDetails   *string     `json:"additionalDetails"`
	ScheduleURL         *string     `json:"scheduleUrl"`
	Requirements        *StringList `json:"requirements"`
}

// TrainingRepository 提供培训课程的增删改查，契约与 JobRepository 一致。
type TrainingRepository struct {
	db     *gorm.DB
	feed   *realtime.Publisher
	logger *slog.Logger
}

// NewTrainingRepository 构造 TrainingRepository；feed 可以为 nil（只读场景）。
func NewTrainingRepository(db *gorm.DB, feed *realtime.Publisher, logger *slog.Logger) *TrainingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrainingRepository{db: db, feed: feed, logger: logger}
}

// List 返回全部培训课程。课程不携带时间戳，没有可用的时间序，
// 因此忽略传入的排序要求，统一按标题字母序。空表返回空切片。
func (r *TrainingRepository) List(ctx context.Context, _ Sort) ([]TrainingView, error) {
	var trainings []database.Training
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&trainings).Error; err != nil {
		return nil, fmt.Errorf("list trainings: %w", err)
	}
	return NewTrainingViews(trainings), nil
}

// GetByID 按 id 查找培训课程；未命中返回 ErrNotFound。
func (r *TrainingRepository) GetByID(ctx context.Context, id string) (*TrainingView, error) {
	var training database.Training
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&training).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get training %s: %w", id, err)
	}
	view := NewTrainingView(training)
	return &view, nil
}

// Create 校验标题后插入新课程。
func (r *TrainingRepository) Create(ctx context.Context, input TrainingInput) (*TrainingView, error) {
	if err := requireNonEmpty("title", strings.TrimSpace(input.Title)); err != nil {
		return nil, err
	}

	training := database.Training{
		Title:               strings.TrimSpace(input.Title),
		Description:         input.Description,
		Image:               input.Image,
		Availability:        input.Availability,
		Duration:            input.Duration,
		NotificationChannel: input.NotificationChannel,
		Price:               input.Price,
		OriginalPrice:       input.OriginalPrice,
		ClassHours:          input.ClassHours,
		AdditionalDetails:   input.AdditionalDetails,
		ScheduleURL:         input.ScheduleURL,
		Requirements:        datatypes.JSONSlice[string](input.Requirements.Normalize()),
	}

	if err := r.db.WithContext(ctx).Create(&training).Error; err != nil {
		return nil, fmt.Errorf("create training: %w", err)
	}

	view := NewTrainingView(training)
	r.publish(ctx, realtime.EventInsert, &view, nil)
	return &view, nil
}

// Update 对现有课程做部分更新。
func (r *TrainingRepository) Update(ctx context.Context, id string, patch TrainingPatch) (*TrainingView, error) {
	var training database.Training
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&training).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load training %s: %w", id, err)
	}
	oldView := NewTrainingView(training)

	updates := map[string]any{}
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if err := requireNonEmpty("title", trimmed); err != nil {
			return nil, err
		}
		updates["title"] = trimmed
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Image != nil {
		updates["image"] = *patch.Image
	}
	if patch.Availability != nil {
		updates["availability"] = *patch.Availability
	}
	if patch.Duration != nil {
		updates["duration"] = *patch.Duration
	}
	if patch.NotificationChannel != nil {
		updates["notification_channel"] = *patch.NotificationChannel
	}
	if patch.Price != nil {
		updates["price"] = *patch.Price
	}
	if patch.OriginalPrice != nil {
		updates["original_price"] = *patch.OriginalPrice
	}
	if patch.ClassHours != nil {
		updates["class_hours"] = *patch.ClassHours
	}
	if patch.AdditionalDetails != nil {
		updates["additional_details"] = *patch.AdditionalDetails
	}
	if patch.ScheduleURL != nil {
		updates["schedule_url"] = *patch.ScheduleURL
	}
	if patch.Requirements != nil {
		updates["requirements"] = datatypes.JSONSlice[string](patch.Requirements.Normalize())
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(&training).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update training %s: %w", id, err)
		}
		if err := r.db.WithContext(ctx).Where("id = ?", id).First(&training).Error; err != nil {
			return nil, fmt.Errorf("reload training %s: %w", id, err)
		}
	}

	view := NewTrainingView(training)
	r.publish(ctx, realtime.EventUpdate, &view, &oldView)
	return &view, nil
}

// Delete 删除指定课程；id 不存在按成功处理（幂等），此时不发布事件。
func (r *TrainingRepository) Delete(ctx context.Context, id string) error {
	var training database.Training
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&training).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load training %s: %w", id, err)
	}

	if err := r.db.WithContext(ctx).Delete(&database.Training{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete training %s: %w", id, err)
	}

	oldView := NewTrainingView(training)
	r.publish(ctx, realtime.EventDelete, nil, &oldView)
	return nil
}

func (r *TrainingRepository) publish(ctx context.Context, typ realtime.EventType, row, oldRow *TrainingView) {
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
	if err := r.feed.Publish(ctx, TableTrainings, typ, rowAny, oldAny); err != nil {
		r.logger.Error("publish training change failed",
			slog.String("type", string(typ)),
			slog.Any("error", err),
		)
	}
}
