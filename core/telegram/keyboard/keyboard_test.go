package keyboard

import (
	"reflect"
	"testing"
)

func TestColumnOneLabelPerRow(t *testing.T) {
	m := Column([]string{"Sales", "Support", "HR"}, OneTime())
	if !m.ResizeKeyboard || !m.OneTimeKeyboard {
		t.Fatalf("flags: resize=%v one_time=%v", m.ResizeKeyboard, m.OneTimeKeyboard)
	}
	if len(m.ReplyKeyboard) != 3 {
		t.Fatalf("rows = %d, want 3", len(m.ReplyKeyboard))
	}
	for i, want := range []string{"Sales", "Support", "HR"} {
		row := m.ReplyKeyboard[i]
		if len(row) != 1 || row[0].Text != want {
			t.Fatalf("row %d = %+v", i, row)
		}
	}
}

func TestColumnDefaults(t *testing.T) {
	m := Column([]string{"Sales"})
	if m.OneTimeKeyboard || m.Placeholder != "" {
		t.Fatalf("unexpected options: one_time=%v placeholder=%q", m.OneTimeKeyboard, m.Placeholder)
	}
	if !RemoveKeyboard().RemoveKeyboard {
		t.Fatal("RemoveKeyboard must hide the keyboard")
	}
}

func TestChunkLabels(t *testing.T) {
	got := ChunkLabels([]string{"a", "b", "c", "d", "e"}, 2)
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ChunkLabels = %v", got)
	}
	if rows := ChunkLabels(nil, 3); len(rows) != 0 {
		t.Fatalf("empty input should give no rows, got %v", rows)
	}
}

func TestRemoveKeyboard(t *testing.T) {
	if m := RemoveKeyboard(); !m.RemoveKeyboard || len(m.ReplyKeyboard) != 0 {
		t.Fatalf("markup = %+v", m)
	}
}
