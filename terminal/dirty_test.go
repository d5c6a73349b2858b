package terminal

import (
	"sync"
	"testing"
)

func TestRowSetMarkAndQuery(t *testing.T) {
	s := NewRowSet(100)
	if s.Count() != 0 {
		t.Fatalf("new set count = %d, want 0", s.Count())
	}

	s.Mark(0)
	s.Mark(63)
	s.Mark(64)
	s.Mark(99)
	s.Mark(-1)  // ignored
	s.Mark(100) // ignored

	for _, row := range []int{0, 63, 64, 99} {
		if !s.IsSet(row) {
			t.Errorf("IsSet(%d) = false, want true", row)
		}
	}
	if s.IsSet(1) || s.IsSet(65) {
		t.Error("unmarked rows reported set")
	}
	if got := s.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
}

func TestRowSetForEachOrder(t *testing.T) {
	s := NewRowSet(200)
	want := []int{3, 64, 65, 130, 199}
	for _, r := range want {
		s.Mark(r)
	}

	var got []int
	s.ForEach(func(row int) { got = append(got, row) })

	if len(got) != len(want) {
		t.Fatalf("visited %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("visit %d = row %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRowSetClear(t *testing.T) {
	s := NewRowSet(10)
	s.MarkRange(2, 5)
	if s.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", s.Count())
	}
	s.Clear()
	if s.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", s.Count())
	}
}

func TestRowSetConcurrentMark(t *testing.T) {
	s := NewRowSet(512)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for r := base; r < 512; r += 8 {
				s.Mark(r)
			}
		}(g)
	}
	wg.Wait()
	if got := s.Count(); got != 512 {
		t.Errorf("Count() = %d, want 512", got)
	}
}

func TestRowSetCopyInto(t *testing.T) {
	s := NewRowSet(8)
	s.Mark(1)
	s.Mark(7)
	dst := make([]bool, 8)
	s.CopyInto(dst)
	want := []bool{false, true, false, false, false, false, false, true}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestNewRowSetInvalid(t *testing.T) {
	if NewRowSet(0) != nil {
		t.Error("NewRowSet(0) != nil")
	}
	if NewRowSet(-3) != nil {
		t.Error("NewRowSet(-3) != nil")
	}
}
