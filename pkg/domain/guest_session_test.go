package domain

import "testing"

func TestGuestSessionStateHelpers(t *testing.T) {
	tests := []struct {
		state     GuestSessionState
		isEnded   bool
		isLive    bool
		inProject bool
	}{
		{SessionStateInLobby, false, true, false},
		{SessionStateInProject, false, true, true},
		{SessionStatePromoted, false, true, false},
		{SessionStateEnded, true, false, false},
	}
	for _, tt := range tests {
		s := &GuestSession{State: tt.state}
		if got := s.IsEnded(); got != tt.isEnded {
			t.Errorf("%s: IsEnded = %v, want %v", tt.state, got, tt.isEnded)
		}
		if got := s.IsLive(); got != tt.isLive {
			t.Errorf("%s: IsLive = %v, want %v", tt.state, got, tt.isLive)
		}
		if got := s.InProject(); got != tt.inProject {
			t.Errorf("%s: InProject = %v, want %v", tt.state, got, tt.inProject)
		}
	}
}
