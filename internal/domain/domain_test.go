package domain

import "testing"

func TestMissionAllTargetsComplete(t *testing.T) {
	cases := []struct {
		name string
		m    Mission
		want bool
	}{
		{"no targets", Mission{}, false},
		{"one open", Mission{Targets: []Target{{Complete: true}, {}}}, false},
		{"all complete", Mission{Targets: []Target{{Complete: true}, {Complete: true}}}, true},
	}
	for _, tc := range cases {
		if got := tc.m.AllTargetsComplete(); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTargetLocked(t *testing.T) {
	open := Mission{}
	done := Mission{Complete: true}
	if (Target{}).Locked(open) {
		t.Fatalf("open target in open mission is not locked")
	}
	if !(Target{Complete: true}).Locked(open) {
		t.Fatalf("complete target is locked")
	}
	if !(Target{}).Locked(done) {
		t.Fatalf("target in complete mission is locked")
	}
}
