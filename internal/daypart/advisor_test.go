package daypart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daypart-hub/internal/recurrence"
)

func TestFindOrphanedDays(t *testing.T) {
	others := []Schedule{regular("weekend", "lunch", "11:00", "15:00", tue, sat)}

	got := FindOrphanedDays(MustDaySet(mon, tue, wed), MustDaySet(mon), others)
	assert.Equal(t, []int{wed}, got.Days())

	// 只增不减时没有孤立星期
	assert.True(t, FindOrphanedDays(MustDaySet(mon), MustDaySet(mon, tue), nil).IsEmpty())
}

func TestFindMergeCandidates(t *testing.T) {
	saved := regular("saved", "lunch", "09:00", "17:00", mon, tue)
	siblings := []Schedule{
		saved,
		regular("z-rest", "lunch", "09:00", "17:00", wed, thu, fri),
		regular("a-sat", "lunch", "09:00", "17:00", sat),
		regular("overlap", "lunch", "09:00", "17:00", tue, sun),
		regular("other-time", "lunch", "10:00", "17:00", sun),
		regular("other-name", "dinner", "09:00", "17:00", sun),
		{ID: "event", DaypartName: "lunch", Kind: KindEventHoliday, Days: MustDaySet(sun), Start: MustClock("09:00"), End: MustClock("17:00")},
	}

	got := FindMergeCandidates(saved, siblings)
	require.Len(t, got, 2)
	assert.Equal(t, "a-sat", got[0].ID)
	assert.Equal(t, "z-rest", got[1].ID)
}

func TestMergeSchedules(t *testing.T) {
	saved := regular("saved", "lunch", "09:00", "17:00", mon, tue)
	saved.Name = "Early week"
	rest := regular("rest", "lunch", "09:00", "17:00", wed, thu, fri)
	rest.Name = "Late week"

	res, err := MergeSchedules(saved, []Schedule{rest})
	require.NoError(t, err)
	assert.Equal(t, "saved", res.Merged.ID)
	assert.Equal(t, []int{mon, tue, wed, thu, fri}, res.Merged.Days.Days())
	assert.Empty(t, res.Merged.Name)
	assert.Equal(t, []string{"rest"}, res.DeletedIDs)
	assert.Equal(t, "Early week", saved.Name)
}

func TestMergeSchedules_Rejects(t *testing.T) {
	saved := regular("saved", "lunch", "09:00", "17:00", mon)

	_, err := MergeSchedules(saved, nil)
	assert.True(t, errors.Is(err, ErrNotMergeable))

	_, err = MergeSchedules(saved, []Schedule{regular("late", "lunch", "09:00", "18:00", tue)})
	assert.True(t, errors.Is(err, ErrNotMergeable))

	// 候选之间相交同样拒绝
	_, err = MergeSchedules(saved, []Schedule{
		regular("b", "lunch", "09:00", "17:00", tue, wed),
		regular("c", "lunch", "09:00", "17:00", wed),
	})
	assert.True(t, errors.Is(err, ErrNotMergeable))

	holiday := event("h", "lunch", "09:00", "17:00", recurrence.Rule{Kind: recurrence.KindAnnualDate, Month: 1, Day: 1})
	_, err = MergeSchedules(saved, []Schedule{holiday})
	assert.True(t, errors.Is(err, ErrNotMergeable))
}
