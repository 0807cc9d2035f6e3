package listings

import (
	"time"

	"carelistings/internal/database"
)

// JobView 是职位在 API 响应与变更事件里的统一形态。
// 字段名沿用既有前端约定（created_at 为下划线、updatedAt 为驼峰）。
type JobView struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Location         string    `json:"location"`
	Company          string    `json:"company"`
	EmploymentType   string    `json:"employmentType,omitempty"`
	Summary          string    `json:"summary,omitempty"`
	Qualifications   []string  `json:"qualifications"`
	Responsibilities []string  `json:"responsibilities"`
	ReportsTo        string    `json:"reportsTo,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TrainingView 是培训课程在 API 响应与变更事件里的统一形态。
type TrainingView struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Description         string   `json:"description,omitempty"`
	Image               string   `json:"image,omitempty"`
	Availability        string   `json:"availability,omitempty"`
	Duration            string   `json:"duration,omitempty"`
	NotificationChannel string   `json:"notificationChannel,omitempty"`
	Price               string   `json:"price,omitempty"`
	OriginalPrice       string   `json:"originalPrice,omitempty"`
	ClassHours          string   `json:"classHours,omitempty"`
	AdditionalDetails   string   `json:"additionalDetails,omitempty"`
	ScheduleURL         string   `json:"scheduleUrl,omitempty"`
	Requirements        []string `json:"requirements"`
}

// NewJobView 从持久化模型构造响应形态。
func NewJobView(job database.Job) JobView {
	return JobView{
		ID:               job.ID,
		Title:            job.Title,
		Location:         job.Location,
		Company:          job.Company,
		EmploymentType:   job.EmploymentType,
		Summary:          job.Summary,
		Qualifications:   emptyIfNil(job.Qualifications),
		Responsibilities: emptyIfNil(job.Responsibilities),
		ReportsTo:        job.ReportsTo,
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}
}

// NewTrainingView 从持久化模型构造响应形态。
func NewTrainingView(t database.Training) TrainingView {
	return TrainingView{
		ID:                  t.ID,
		Title:               t.Title,
		Description:         t.Description,
		Image:               t.Image,
		Availability:        t.Availability,
		Duration:            t.Duration,
		NotificationChannel: t.NotificationChannel,
		Price:               t.Price,
		OriginalPrice:       t.OriginalPrice,
		ClassHours:          t.ClassHours,
		AdditionalDetails:   t.AdditionalDetails,
		ScheduleURL:         t.ScheduleURL,
		Requirements:        emptyIfNil(t.Requirements),
	}
}

// NewJobViews 批量转换，空结果返回 []，不返回 nil。
func NewJobViews(jobs []database.Job) []JobView {
	out := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, NewJobView(j))
	}
	return out
}

// NewTrainingViews 批量转换，空结果返回 []，不返回 nil。
func NewTrainingViews(trainings []database.Training) []TrainingView {
	out := make([]TrainingView, 0, len(trainings))
	for _, t := range trainings {
		out = append(out, NewTrainingView(t))
	}
	return out
}

func emptyIfNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
