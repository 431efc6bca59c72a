package state

import "testing"

func TestNewReturnsTracker(t *testing.T) {
	tr := New(nil)
	if tr == nil {
		t.Fatal("New(nil) returned nil")
	}
}
