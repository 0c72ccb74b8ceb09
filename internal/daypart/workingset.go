package daypart

import "fmt"

// workingSet 一次写操作期间某定义下排期的可变副本
type workingSet struct {
	def       Definition
	schedules []Schedule
	// idMap 调用方看到的排期 ID → 工作集 ID；分叉时二者不同
	idMap    map[string]string
	inserted map[string]bool
	updated  map[string]bool
	deleted  []string
	newID    func() string
}

// index 按调用方 ID（或工作集 ID）定位排期
func (w *workingSet) index(id string) (int, error) {
	if mapped, ok := w.idMap[id]; ok {
		id = mapped
	}
	for i, s := range w.schedules {
		if s.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
}

// prepare 归属、优先级、字段校验以及同名时段的星期冲突校验
func (w *workingSet) prepare(s Schedule, id string) (Schedule, error) {
	s.ID = id
	s.DefinitionID = w.def.ID
	s.DaypartName = w.def.Name
	s.Priority = PriorityOf(s)
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	if s.Kind == KindRegular {
		if _, err := ValidateCandidateDays(w.def.Name, s.Days, w.schedules, id); err != nil {
			return Schedule{}, err
		}
	}
	return s.clone(), nil
}

func (w *workingSet) insert(s Schedule) (Schedule, error) {
	next, err := w.prepare(s, w.newID())
	if err != nil {
		return Schedule{}, err
	}
	w.schedules = append(w.schedules, next)
	w.inserted[next.ID] = true
	return next, nil
}

func (w *workingSet) update(id string, s Schedule) (prev, next Schedule, err error) {
	i, err := w.index(id)
	if err != nil {
		return Schedule{}, Schedule{}, err
	}
	prev = w.schedules[i]
	next, err = w.prepare(s, prev.ID)
	if err != nil {
		return Schedule{}, Schedule{}, err
	}
	w.replace(i, next)
	return prev, next, nil
}

// replace 不做校验地替换（合并结果已由 MergeSchedules 保证）
func (w *workingSet) replace(i int, s Schedule) {
	s.ID = w.schedules[i].ID
	s.DefinitionID = w.def.ID
	s.DaypartName = w.def.Name
	s.Priority = PriorityOf(s)
	w.schedules[i] = s
	if !w.inserted[s.ID] {
		w.updated[s.ID] = true
	}
}

func (w *workingSet) remove(id string) (Schedule, error) {
	i, err := w.index(id)
	if err != nil {
		return Schedule{}, err
	}
	prev := w.schedules[i]
	w.schedules = append(w.schedules[:i], w.schedules[i+1:]...)
	w.deleted = append(w.deleted, prev.ID)
	delete(w.updated, prev.ID)
	return prev, nil
}
