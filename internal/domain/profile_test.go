package domain

import (
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestProfilePatch_Apply(t *testing.T) {
	profile := Profile{
		UserID:     "u1",
		Nickname:   "alice",
		JobTitle:   "백엔드",
		TechStacks: []string{"go"},
	}

	hubCard := true
	stacks := []string{"go", "postgres"}
	ProfilePatch{
		Answer1:    strPtr("I like pairing"),
		HubCard:    &hubCard,
		TechStacks: &stacks,
	}.Apply(&profile)

	if profile.Nickname != "alice" || profile.JobTitle != "백엔드" {
		t.Errorf("Expected untouched fields to be preserved, got %+v", profile)
	}
	if profile.Answer1 != "I like pairing" {
		t.Errorf("Expected answer1 to be set, got %q", profile.Answer1)
	}
	if !profile.HubCard {
		t.Error("Expected hubCard to be true")
	}

	stacks[0] = "rust"
	if profile.TechStacks[0] != "go" {
		t.Error("Expected tech stacks to be copied, not aliased")
	}
}

func TestProfilePatch_IsEmpty(t *testing.T) {
	if !(ProfilePatch{}).IsEmpty() {
		t.Error("Expected zero patch to be empty")
	}
	if (ProfilePatch{Blog: strPtr("")}).IsEmpty() {
		t.Error("Expected patch with an explicit empty string to be non-empty")
	}
}

func TestProfilePatch_Validate(t *testing.T) {
	tooMany := make([]string, MaxTechStacks+1)
	maxStacks := make([]string, MaxTechStacks)

	tests := []struct {
		name    string
		patch   ProfilePatch
		wantErr error
	}{
		{"empty patch", ProfilePatch{}, nil},
		{"valid nickname", ProfilePatch{Nickname: strPtr("bob_99")}, nil},
		{"invalid nickname", ProfilePatch{Nickname: strPtr("b")}, ErrInvalidNickname},
		{"ten tech stacks", ProfilePatch{TechStacks: &maxStacks}, nil},
		{"eleven tech stacks", ProfilePatch{TechStacks: &tooMany}, ErrTooManyTechStacks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestProfile_Clone(t *testing.T) {
	p := Profile{Nickname: "alice", TechStacks: []string{"go"}}
	c := p.Clone()
	c.TechStacks[0] = "rust"
	if p.TechStacks[0] != "go" {
		t.Error("Expected clone to own its tech stacks slice")
	}
}
