package domain

import "testing"

func TestStatusKindFlags(t *testing.T) {
	tests := []struct {
		kind StatusKind
		want StatusFlags
	}{
		{StatusKindUnclaimed, StatusFlags{Initial: true}},
		{StatusKindInProgress, StatusFlags{InProgress: true}},
		{StatusKindAwaiting, StatusFlags{}},
		{StatusKindResolved, StatusFlags{Final: true, AllowsReopen: true}},
		{StatusKindClosed, StatusFlags{Final: true}},
		{StatusKind("BOGUS"), StatusFlags{}},
	}
	for _, tt := range tests {
		if got := tt.kind.Flags(); got != tt.want {
			t.Errorf("%s.Flags() = %+v, want %+v", tt.kind, got, tt.want)
		}
	}
}

func TestNoKindIsBothInitialAndReopenable(t *testing.T) {
	for _, k := range StatusKinds() {
		f := k.Flags()
		if f.Initial && f.AllowsReopen {
			t.Errorf("kind %s is both initial and reopenable", k)
		}
	}
}

func TestKindSubsets(t *testing.T) {
	reopenable := ReopenableKinds()
	if len(reopenable) != 1 || reopenable[0] != StatusKindResolved {
		t.Errorf("ReopenableKinds() = %v, want [RESOLVED]", reopenable)
	}
	final := FinalKinds()
	if len(final) != 2 || final[0] != StatusKindResolved || final[1] != StatusKindClosed {
		t.Errorf("FinalKinds() = %v, want [RESOLVED CLOSED]", final)
	}
}

func TestValid(t *testing.T) {
	if !StatusKindAwaiting.Valid() {
		t.Error("AWAITING should be valid")
	}
	if StatusKind("").Valid() {
		t.Error("empty kind should be invalid")
	}
}
