package domain

import (
	"testing"
	"time"
)

func TestGuestInviteMatches(t *testing.T) {
	invite := &GuestInvite{
		Email:             "Guest@Example.com",
		ProjectAccessCode: "code-1",
		ExpiresAt:         time.Now().Add(time.Hour),
	}

	if !invite.Matches("guest@example.com", "code-1") {
		t.Error("case-insensitive email match failed")
	}
	if invite.Matches("other@example.com", "code-1") {
		t.Error("matched a different email")
	}
	if invite.Matches("guest@example.com", "code-2") {
		t.Error("matched a different access code")
	}
}

func TestGuestInviteExpiry(t *testing.T) {
	expired := &GuestInvite{
		Email:             "guest@example.com",
		ProjectAccessCode: "code-1",
		ExpiresAt:         time.Now().Add(-time.Minute),
	}
	if !expired.IsExpired() {
		t.Error("IsExpired = false for a past expiry")
	}
	if expired.Matches("guest@example.com", "code-1") {
		t.Error("expired invite matched")
	}

	// Zero expiry means no expiry.
	open := &GuestInvite{Email: "guest@example.com", ProjectAccessCode: "code-1"}
	if open.IsExpired() {
		t.Error("IsExpired = true for a zero expiry")
	}
	if !open.Matches("guest@example.com", "code-1") {
		t.Error("open-ended invite did not match")
	}
}
