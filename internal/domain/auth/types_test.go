package auth

import (
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"admin", RoleAdmin},
		{" ADMIN ", RoleAdmin},
		{"user", RoleUser},
		{"", RoleUser},
		{"superuser", RoleUser},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Fatalf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSession_IsAdmin(t *testing.T) {
	if !(Session{Role: RoleAdmin}).IsAdmin() {
		t.Fatalf("expected admin")
	}
	if (Session{Role: RoleUser}).IsAdmin() {
		t.Fatalf("did not expect admin")
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	if (Session{}).Expired(now) {
		t.Fatalf("zero expiry must not count as expired")
	}
	if (Session{ExpiresAt: now.Add(time.Hour)}).Expired(now) {
		t.Fatalf("future expiry must not count as expired")
	}
	if !(Session{ExpiresAt: now.Add(-time.Minute)}).Expired(now) {
		t.Fatalf("past expiry must count as expired")
	}
}

func TestIdentity_IsAdmin(t *testing.T) {
	id := Identity{UID: "u1", Role: RoleAdmin}
	if !id.IsAdmin() {
		t.Fatalf("expected admin identity")
	}
}
