package model

import (
	"slices"
	"testing"
)

func TestWeekdays_Scan(t *testing.T) {
	tests := []struct {
		src     interface{}
		want    Weekdays
		wantErr bool
	}{
		{"{0,1,6}", Weekdays{0, 1, 6}, false},
		{[]byte("{ 2, 3 }"), Weekdays{2, 3}, false},
		{"{}", Weekdays{}, false},
		{nil, nil, false},
		{"{7}", nil, true},
		{"{a}", nil, true},
		{42, nil, true},
	}
	for _, tt := range tests {
		var w Weekdays
		err := w.Scan(tt.src)
		if (err != nil) != tt.wantErr {
			t.Errorf("Scan(%v) 错误不符: %v", tt.src, err)
			continue
		}
		if !tt.wantErr && !slices.Equal(w, tt.want) {
			t.Errorf("Scan(%v) 期望 %v，实际 %v", tt.src, tt.want, w)
		}
	}
}

func TestWeekdays_Value(t *testing.T) {
	v, _ := Weekdays{6, 0, 3}.Value()
	if v != "{0,3,6}" {
		t.Errorf("期望 {0,3,6}，实际 %v", v)
	}
	v, _ = Weekdays(nil).Value()
	if v != "{}" {
		t.Errorf("nil 期望 {}，实际 %v", v)
	}
}
