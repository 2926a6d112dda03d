package domain

import "testing"

func TestIdempotencyRecord_TableName(t *testing.T) {
	if got := (IdempotencyRecord{}).TableName(); got != "idempotency_keys" {
		t.Fatalf("TableName() = %q; want idempotency_keys", got)
	}
}

func TestIdempotencyRecord_Matches(t *testing.T) {
	rec := &IdempotencyRecord{Key: "k1", UserID: "u1", RequestHash: "h1"}

	cases := []struct {
		name   string
		userID string
		hash   string
		want   bool
	}{
		{"same owner and hash", "u1", "h1", true},
		{"different owner", "u2", "h1", false},
		{"different hash", "u1", "h2", false},
		{"both different", "u2", "h2", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rec.Matches(tc.userID, tc.hash); got != tc.want {
				t.Fatalf("Matches(%q, %q) = %v; want %v", tc.userID, tc.hash, got, tc.want)
			}
		})
	}
}

func TestValidTaskStatus(t *testing.T) {
	for _, s := range []string{TaskStatusPending, TaskStatusDone} {
		if !ValidTaskStatus(s) {
			t.Fatalf("ValidTaskStatus(%q) = false; want true", s)
		}
	}
	for _, s := range []string{"", "archived", "PENDING"} {
		if ValidTaskStatus(s) {
			t.Fatalf("ValidTaskStatus(%q) = true; want false", s)
		}
	}
}

func TestModels_TableNames(t *testing.T) {
	if got := (Task{}).TableName(); got != "tasks" {
		t.Fatalf("Task.TableName() = %q; want tasks", got)
	}
	if got := (User{}).TableName(); got != "users" {
		t.Fatalf("User.TableName() = %q; want users", got)
	}
}
