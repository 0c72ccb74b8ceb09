package daypart

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"daypart-hub/internal/recurrence"
)

const (
	sun = iota
	mon
	tue
	wed
	thu
	fri
	sat
)

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func regular(id, daypart, start, end string, days ...int) Schedule {
	return Schedule{
		ID:          id,
		DaypartName: daypart,
		Days:        MustDaySet(days...),
		Start:       MustClock(start),
		End:         MustClock(end),
		Kind:        KindRegular,
	}
}

func event(id, daypart, start, end string, rule recurrence.Rule) Schedule {
	return Schedule{
		ID:          id,
		DaypartName: daypart,
		Start:       MustClock(start),
		End:         MustClock(end),
		Kind:        KindEventHoliday,
		Rule:        &rule,
	}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := recurrence.ParseDate(s)
	require.NoError(t, err)
	return d
}

func dayPtr(t *testing.T, s string) *time.Time {
	d := day(t, s)
	return &d
}

// 三层链：global → concept → store
func chain() []Node {
	return []Node{
		{ID: "global", Level: LevelGlobal, Name: "Global"},
		{ID: "concept", ParentID: "global", Level: LevelConcept, Name: "Burgers"},
		{ID: "store", ParentID: "concept", Level: LevelStore, Name: "Store 12"},
		{ID: "sibling", ParentID: "concept", Level: LevelStore, Name: "Store 13"},
	}
}

func onDef(defID string, s Schedule) Schedule {
	s.DefinitionID = defID
	return s
}
