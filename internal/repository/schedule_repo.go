package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"daypart-hub/internal/model"
	pkgerrors "daypart-hub/pkg/errors"
)

// ScheduleRepository 时段排期数据访问接口
type ScheduleRepository interface {
	BatchCreate(ctx context.Context, schedules []model.DaypartSchedule) error
	GetByID(ctx context.Context, id string) (*model.DaypartSchedule, error)
	ListByDefinition(ctx context.Context, definitionID string) ([]model.DaypartSchedule, error)
	Update(ctx context.Context, schedule *model.DaypartSchedule) error
	DeleteByIDs(ctx context.Context, ids []string, deletedBy string) error
}

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) BatchCreate(ctx context.Context, schedules []model.DaypartSchedule) error {
	if len(schedules) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&schedules).Error
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (*model.DaypartSchedule, error) {
	var s model.DaypartSchedule
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepo) ListByDefinition(ctx context.Context, definitionID string) ([]model.DaypartSchedule, error) {
	var schedules []model.DaypartSchedule
	err := r.db.WithContext(ctx).
		Where("definition_id = ?", definitionID).
		Order("schedule_kind ASC, start_time ASC, schedule_id ASC").
		Find(&schedules).Error
	return schedules, err
}

// Update 覆盖排期的全部业务字段，带乐观锁
func (r *scheduleRepo) Update(ctx context.Context, s *model.DaypartSchedule) error {
	oldVersion := s.Version
	result := r.db.WithContext(ctx).
		Model(&model.DaypartSchedule{}).
		Where("schedule_id = ? AND version = ?", s.ScheduleID, oldVersion).
		Updates(map[string]interface{}{
			"days_of_week":          s.DaysOfWeek,
			"start_time":            s.StartTime,
			"end_time":              s.EndTime,
			"schedule_kind":         s.ScheduleKind,
			"schedule_name":         s.ScheduleName,
			"recurrence_type":       s.RecurrenceType,
			"recurrence_date":       s.RecurrenceDate,
			"recurrence_month":      s.RecurrenceMonth,
			"recurrence_day":        s.RecurrenceDay,
			"recurrence_position":   s.RecurrencePosition,
			"recurrence_weekday":    s.RecurrenceWeekday,
			"recurrence_start_date": s.RecurrenceStartDate,
			"recurrence_end_date":   s.RecurrenceEndDate,
			"priority_level":        s.PriorityLevel,
			"updated_by":            s.UpdatedBy,
			"updated_at":            time.Now().UTC(),
			"version":               oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	s.Version = oldVersion + 1
	return nil
}

func (r *scheduleRepo) DeleteByIDs(ctx context.Context, ids []string, deletedBy string) error {
	if len(ids) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.DaypartSchedule{}).
		Where("schedule_id IN ?", ids).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	// 任一行已被删除说明快照过期
	if result.RowsAffected != int64(len(ids)) {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
