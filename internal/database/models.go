package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job 表示一条护理岗位招聘信息。
// ID 为持久层生成的不透明字符串；title/location/company 由仓储层保证非空。
type Job struct {
	ID               string                      `gorm:"primaryKey;size:36"`
	Title            string                      `gorm:"size:255"`
	Location         string                      `gorm:"size:255"`
	Company          string                      `gorm:"size:255"`
	EmploymentType   string                      `gorm:"size:64"`
	Summary          string                      `gorm:"type:text"`
	Qualifications   datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Responsibilities datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	ReportsTo        string                      `gorm:"size:255"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BeforeCreate 在插入前分配 UUID 主键。
func (j *Job) BeforeCreate(_ *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}

// Training 表示一个培训/认证课程。
// 价格字段是展示用字符串而非数值；NotificationChannel 标识客户端订阅的推送主题。
type Training struct {
	ID                  string                      `gorm:"primaryKey;size:36"`
	Title               string                      `gorm:"size:255"`
	Description         string                      `gorm:"type:text"`
	Image               string                      `gorm:"size:512"`
	Availability        string                      `gorm:"size:255"`
	Duration            string                      `gorm:"size:255"`
	NotificationChannel string                      `gorm:"size:128"`
	Price               string                      `gorm:"size:64"`
	OriginalPrice       string                      `gorm:"size:64"`
	ClassHours          string                      `gorm:"size:64"`
	AdditionalDetails   string                      `gorm:"type:text"`
	ScheduleURL         string                      `gorm:"size:512"`
	Requirements        datatypes.JSONSlice[string] `gorm:"type:jsonb"`
}

// BeforeCreate 在插入前分配 UUID 主键。
func (t *Training) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AdminUser 表示可以管理职位与培训条目的后台账号。
type AdminUser struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:64"`
	PasswordHash string `gorm:"size:255"`
}
