package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DaypartSchedule 时段排期表，对应 daypart_schedules
// 常规排期只使用 days_of_week；活动/节假日排期按 recurrence_type 使用对应的 recurrence_* 列
type DaypartSchedule struct {
	ScheduleID   string   `gorm:"type:uuid;primaryKey"                    json:"schedule_id"`
	DefinitionID string   `gorm:"type:uuid;not null;index"                json:"definition_id"`
	DaysOfWeek   Weekdays `gorm:"type:int[];not null;default:'{}'"        json:"days_of_week"` // 0=周日 … 6=周六
	StartTime    string   `gorm:"type:varchar(5);not null"                json:"start_time"`   // "HH:MM"
	EndTime      string   `gorm:"type:varchar(5);not null"                json:"end_time"`     // "HH:MM"，允许 "24:00"
	ScheduleKind string   `gorm:"type:varchar(16);not null"               json:"schedule_kind"`
	ScheduleName string   `gorm:"type:varchar(100);not null;default:''"   json:"schedule_name"`

	RecurrenceType      *string    `gorm:"type:varchar(32)" json:"recurrence_type,omitempty"`
	RecurrenceDate      *time.Time `gorm:"type:date"        json:"recurrence_date,omitempty"`
	RecurrenceMonth     *int       `gorm:"type:smallint"    json:"recurrence_month,omitempty"`
	RecurrenceDay       *int       `gorm:"type:smallint"    json:"recurrence_day,omitempty"`
	RecurrencePosition  *string    `gorm:"type:varchar(8)"  json:"recurrence_position,omitempty"`
	RecurrenceWeekday   *int       `gorm:"type:smallint"    json:"recurrence_weekday,omitempty"`
	RecurrenceStartDate *time.Time `gorm:"type:date"        json:"recurrence_start_date,omitempty"`
	RecurrenceEndDate   *time.Time `gorm:"type:date"        json:"recurrence_end_date,omitempty"`

	PriorityLevel int `gorm:"not null;default:10" json:"priority_level"`
	VersionedModel
}

// TableName 指定表名
func (DaypartSchedule) TableName() string { return "daypart_schedules" }

// BeforeCreate 未指定主键时生成 UUID
func (s *DaypartSchedule) BeforeCreate(_ *gorm.DB) error {
	if s.ScheduleID == "" {
		s.ScheduleID = uuid.NewString()
	}
	return nil
}
