package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"carelistings/internal/api/middleware"
	"carelistings/internal/listings"
	"carelistings/internal/tasks"
)

// TrainingsHandler 负责培训目录的公开读取与管理端写入。
type TrainingsHandler struct {
	repo        *listings.TrainingRepository
	asynqClient *asynq.Client
}

// NewTrainingsHandler 构造 TrainingsHandler；asynqClient 可以为 nil。
func NewTrainingsHandler(repo *listings.TrainingRepository, asynqClient *asynq.Client) *TrainingsHandler {
	return &TrainingsHandler{repo: repo, asynqClient: asynqClient}
}

// ListTrainings 返回全部课程，按标题字母序。空表返回 []。
func (h *TrainingsHandler) ListTrainings(c *gin.Context) {
	trainings, err := h.repo.List(c.Request.Context(), listings.SortTitleAsc)
	if err != nil {
		if IsTimeout(err) {
			Timeout(c)
			return
		}
		middleware.LoggerFromContext(c).Error("list trainings failed", slog.Any("error", err))
		Internal(c, "failed to load trainings")
		return
	}
	c.JSON(http.StatusOK, trainings)
}

// GetTraining 返回指定课程；未命中返回 404。
func (h *TrainingsHandler) GetTraining(c *gin.Context) {
	training, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, listings.ErrNotFound):
			NotFound(c, "Training not found")
		case IsTimeout(err):
			Timeout(c)
		default:
			middleware.LoggerFromContext(c).Error("get training failed", slog.Any("error", err))
			Internal(c, "failed to load training")
		}
		return
	}
	c.JSON(http.StatusOK, training)
}

// CreateTraining 新建课程。
func (h *TrainingsHandler) CreateTraining(c *gin.Context) {
	var input listings.TrainingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, err.Error())
		return
	}

	training, err := h.repo.Create(c.Request.Context(), input)
	if err != nil {
		if listings.IsValidation(err) {
			BadRequest(c, err.Error())
			return
		}
		middleware.LoggerFromContext(c).Error("create training failed", slog.Any("error", err))
		Internal(c, "failed to create training")
		return
	}

	h.enqueueNotify(c, training, "created")
	c.JSON(http.StatusCreated, training)
}

// UpdateTraining 接受部分请求体，仅更新出现的字段。
func (h *TrainingsHandler) UpdateTraining(c *gin.Context) {
	var patch listings.TrainingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}

	training, err := h.repo.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		switch {
		case errors.Is(err, listings.ErrNotFound):
			NotFound(c, "Training not found")
		case listings.IsValidation(err):
			BadRequest(c, err.Error())
		default:
			middleware.LoggerFromContext(c).Error("update training failed", slog.Any("error", err))
			Internal(c, "failed to update training")
		}
		return
	}

	h.enqueueNotify(c, training, "updated")
	c.JSON(http.StatusOK, training)
}

// DeleteTraining 删除课程，重复删除同样返回成功（幂等）。
func (h *TrainingsHandler) DeleteTraining(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.LoggerFromContext(c).Error("delete training failed", slog.Any("error", err))
		Internal(c, "failed to delete training")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *TrainingsHandler) enqueueNotify(c *gin.Context, training *listings.TrainingView, event string) {
	if h.asynqClient == nil || training.NotificationChannel == "" {
		return
	}
	task, err := tasks.NewListingNotifyTask(tasks.ListingNotifyPayload{
		Channel:       training.NotificationChannel,
		Table:         listings.TableTrainings,
		ListingID:     training.ID,
		Title:         training.Title,
		Event:         event,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		middleware.LoggerFromContext(c).Error("create notify task failed", slog.Any("error", err))
		return
	}
	if _, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5)); err != nil {
		middleware.LoggerFromContext(c).Error("enqueue notify task failed", slog.Any("error", err))
	}
}
