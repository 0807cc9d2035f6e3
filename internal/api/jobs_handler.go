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

// JobsHandler 负责职位目录的公开读取与管理端写入。
// 写入统一走这里的 API，不存在绕开 HTTP 层的旁路。
type JobsHandler struct {
	repo        *listings.JobRepository
	asynqClient *asynq.Client
}

// NewJobsHandler 构造 JobsHandler；asynqClient 可以为 nil（不投递通知）。
func NewJobsHandler(repo *listings.JobRepository, asynqClient *asynq.Client) *JobsHandler {
	return &JobsHandler{repo: repo, asynqClient: asynqClient}
}

// ListJobs 返回全部职位，最新创建的在前。空表返回 []。
func (h *JobsHandler) ListJobs(c *gin.Context) {
	jobs, err := h.repo.List(c.Request.Context(), listings.SortDateDesc)
	if err != nil {
		if IsTimeout(err) {
			Timeout(c)
			return
		}
		middleware.LoggerFromContext(c).Error("list jobs failed", slog.Any("error", err))
		Internal(c, "failed to load jobs")
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// GetJob 返回指定职位；未命中返回 404。
func (h *JobsHandler) GetJob(c *gin.Context) {
	job, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, listings.ErrNotFound):
			NotFound(c, "Job not found")
		case IsTimeout(err):
			Timeout(c)
		default:
			middleware.LoggerFromContext(c).Error("get job failed", slog.Any("error", err))
			Internal(c, "failed to load job")
		}
		return
	}
	c.JSON(http.StatusOK, job)
}

// CreateJob 新建职位（含"另存为新条目"：带全部字段再提交一次即可）。
func (h *JobsHandler) CreateJob(c *gin.Context) {
	var input listings.JobInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, err.Error())
		return
	}

	job, err := h.repo.Create(c.Request.Context(), input)
	if err != nil {
		if listings.IsValidation(err) {
			BadRequest(c, err.Error())
			return
		}
		middleware.LoggerFromContext(c).Error("create job failed", slog.Any("error", err))
		Internal(c, "failed to create job")
		return
	}

	h.enqueueNotify(c, job)
	c.JSON(http.StatusCreated, job)
}

// UpdateJob 对职位做部分更新；id 与 created_at 不可被客户端改写。
func (h *JobsHandler) UpdateJob(c *gin.Context) {
	var patch listings.JobPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}

	job, err := h.repo.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		switch {
		case errors.Is(err, listings.ErrNotFound):
			NotFound(c, "Job not found")
		case listings.IsValidation(err):
			BadRequest(c, err.Error())
		default:
			middleware.LoggerFromContext(c).Error("update job failed", slog.Any("error", err))
			Internal(c, "failed to update job")
		}
		return
	}
	c.JSON(http.StatusOK, job)
}

// DeleteJob 删除职位。重复删除同样返回成功（幂等）。
func (h *JobsHandler) DeleteJob(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.LoggerFromContext(c).Error("delete job failed", slog.Any("error", err))
		Internal(c, "failed to delete job")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *JobsHandler) enqueueNotify(c *gin.Context, job *listings.JobView) {
	if h.asynqClient == nil {
		return
	}
	task, err := tasks.NewListingNotifyTask(tasks.ListingNotifyPayload{
		Channel:       tasks.JobsChannel,
		Table:         listings.TableJobs,
		ListingID:     job.ID,
		Title:         job.Title,
		Event:         "created",
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		middleware.LoggerFromContext(c).Error("create notify task failed", slog.Any("error", err))
		return
	}
	if _, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5)); err != nil {
		// 通知投递失败不影响已提交的写入。
		middleware.LoggerFromContext(c).Error("enqueue notify task failed", slog.Any("error", err))
	}
}
