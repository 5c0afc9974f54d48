package mongo

import (
	"context"
	"testing"
	"time"
)

func TestWithTimeout_NoParentDeadline(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Second)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if until := time.Until(deadline); until > time.Second || until <= 0 {
		t.Errorf("unexpected deadline distance %v", until)
	}
}

func TestWithTimeout_KeepsEarlierParentDeadline(t *testing.T) {
	parent, parentCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer parentCancel()

	ctx, cancel := WithTimeout(parent, time.Hour)
	defer cancel()

	deadline, _ := ctx.Deadline()
	if time.Until(deadline) > 50*time.Millisecond {
		t.Errorf("deadline was extended past the parent's")
	}
}

func TestStoredTime(t *testing.T) {
	in := time.Date(2025, 12, 5, 10, 0, 0, 123456789, time.FixedZone("X", 3600))
	got := StoredTime(in)
	want := time.Date(2025, 12, 5, 9, 0, 0, 123000000, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("StoredTime = %v, want %v", got, want)
	}
}
