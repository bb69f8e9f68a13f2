package tracking

import (
	"testing"
	"time"
)

func TestWhereClause_EmptyFilter(t *testing.T) {
	where, args := whereClause(Filter{})
	if where != "" || args != nil {
		t.Fatalf("expected no clause, got %q %v", where, args)
	}
}

func TestWhereClause_NumbersPlaceholdersInOrder(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	where, args := whereClause(Filter{From: from, To: to, ComponentName: "Button", ProjectID: "p1"})
	want := " WHERE timestamp >= $1 AND timestamp <= $2 AND component_name = $3 AND project_id = $4"
	if where != want {
		t.Fatalf("unexpected clause:\n got %q\nwant %q", where, want)
	}
	if len(args) != 4 || args[2] != "Button" || args[3] != "p1" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestWhereClause_PartialFilter(t *testing.T) {
	where, args := whereClause(Filter{ProjectID: "p1"})
	if where != " WHERE project_id = $1" {
		t.Fatalf("unexpected clause %q", where)
	}
	if len(args) != 1 || args[0] != "p1" {
		t.Fatalf("unexpected args: %v", args)
	}
}
