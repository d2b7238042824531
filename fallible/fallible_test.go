package fallible

import (
	"errors"
	"testing"
)

func TestBudget(t *testing.T) {
	a := NewBudget(3)
	if err := a.Reserve(2); err != nil {
		t.Fatalf("Reserve(2) error = %v", err)
	}
	err := a.Reserve(2)
	if !errors.Is(err, ErrAllocationFailed) {
		t.Fatalf("Reserve(2) error = %v, want ErrAllocationFailed", err)
	}
	var ae *AllocationError
	if !errors.As(err, &ae) || ae.Available != 1 {
		t.Errorf("AllocationError = %+v, want 1 available", ae)
	}
	if err := a.Reserve(1); err != nil {
		t.Errorf("refused reservation must not be charged, got %v", err)
	}
	a.Reset()
	if err := a.Reserve(3); err != nil {
		t.Errorf("Reserve after Reset error = %v", err)
	}
}

func TestNewBudget_NonPositiveIsUnlimited(t *testing.T) {
	if NewBudget(0) != Unlimited {
		t.Error("NewBudget(0) should be Unlimited")
	}
}

func TestFailAfter(t *testing.T) {
	a := FailAfter(2)
	for i := range 2 {
		if err := a.Reserve(100); err != nil {
			t.Fatalf("Reserve #%d error = %v", i, err)
		}
	}
	if err := a.Reserve(1); !errors.Is(err, ErrAllocationFailed) {
		t.Fatalf("third Reserve error = %v, want ErrAllocationFailed", err)
	}
}

func TestTryPush(t *testing.T) {
	a := NewBudget(1)
	s, err := TryPush(a, []int(nil), 1)
	if err != nil {
		t.Fatalf("first push error = %v", err)
	}
	// capacity 1 is full, growing needs one more slot which the budget refuses
	s, err = TryPush(a, s, 2)
	if !errors.Is(err, ErrAllocationFailed) {
		t.Fatalf("second push error = %v, want ErrAllocationFailed", err)
	}
	if len(s) != 1 || s[0] != 1 {
		t.Errorf("slice after failed push = %v, want [1]", s)
	}
}

func TestTryPush_NoReservationWithinCapacity(t *testing.T) {
	a := FailAfter(0)
	s := make([]int, 0, 2)
	s, err := TryPush(a, s, 1)
	if err != nil {
		t.Fatalf("push within capacity error = %v", err)
	}
	if len(s) != 1 {
		t.Errorf("len = %d, want 1", len(s))
	}
}
