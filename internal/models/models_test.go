package models

import (
	"testing"
	"time"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		req  Request
		want string
	}{
		{"fresh request", Request{}, StatusPending},
		{"expert assigned", Request{AssignedExpert: "e1"}, StatusAssigned},
		{"run started", Request{AssignedExpert: "e1", StartedAt: &now}, StatusInProgress},
		{"run finished", Request{StartedAt: &now, FinishedAt: &now}, StatusCompleted},
	}
	for _, tc := range cases {
		if got := DeriveStatus(tc.req); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}
