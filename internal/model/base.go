package model

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ── 星期数组 ──

// Weekdays 排期的星期列（0=周日），库中为 INT[]。
// 读写 {0,1,6} 文本，SQLite 测试库按 TEXT 存储。
type Weekdays []int

// Scan 解析 {1,2,3}；越界的星期视为脏数据
func (w *Weekdays) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		*w = nil
		return nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("Weekdays.Scan: unsupported type %T", src)
	}

	out := Weekdays{}
	for _, p := range strings.FieldsFunc(strings.Trim(s, "{}"), func(r rune) bool { return r == ',' }) {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || d < 0 || d > 6 {
			return fmt.Errorf("Weekdays.Scan: invalid weekday %q", p)
		}
		out = append(out, d)
	}
	*w = out
	return nil
}

// Value 升序写出；nil 写为 {} 以满足 NOT NULL
func (w Weekdays) Value() (driver.Value, error) {
	days := slices.Clone([]int(w))
	slices.Sort(days)
	var b strings.Builder
	b.WriteByte('{')
	for i, d := range days {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(d))
	}
	b.WriteByte('}')
	return b.String(), nil
}

// BaseModel 通用审计字段（所有业务模型嵌入）
// *By 字段记录 X-Operator-ID 传入的操作人标识
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(64)"                   json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(64)"                   json:"updated_by,omitempty"`
}

// SoftDeleteModel 支持软删除的审计字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"           json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:varchar(64)" json:"deleted_by,omitempty"`
}

// VersionedModel 支持乐观锁的软删除模型
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// Touch 设置创建/更新操作人
func (m *BaseModel) Touch(operatorID string, creating bool) {
	if operatorID == "" {
		return
	}
	op := operatorID
	if creating {
		m.CreatedBy = &op
	}
	m.UpdatedBy = &op
}
