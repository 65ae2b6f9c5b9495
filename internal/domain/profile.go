package domain

import (
	"context"
	"fmt"
	"time"
)

// Profile is the durable per-user record shown on member cards
type Profile struct {
	UserID             string    `json:"userId"`
	Nickname           string    `json:"nickname"`
	Email              string    `json:"email"`
	JobTitle           string    `json:"jobTitle"`
	Experience         string    `json:"experience"`
	Description        string    `json:"description"`
	Blog               string    `json:"blog"` // Portfolio URL
	FirstLinkType      string    `json:"firstLinkType"`
	FirstLink          string    `json:"firstLink"`
	SecondLinkType     string    `json:"secondLinkType"`
	SecondLink         string    `json:"secondLink"`
	Answer1            string    `json:"answer1"`
	Answer2            string    `json:"answer2"`
	Answer3            string    `json:"answer3"`
	TechStacks         []string  `json:"techStacks"`
	HubCard            bool      `json:"hubCard"` // Listed in the member directory
	BackgroundImageURL string    `json:"backgroundImageUrl"`
	ProfileImageURL    string    `json:"profileImageUrl"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Clone returns a deep copy of the profile
func (p Profile) Clone() Profile {
	if p.TechStacks != nil {
		p.TechStacks = append([]string(nil), p.TechStacks...)
	}
	return p
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Nickname           *string   `json:"nickname,omitempty"`
	Email              *string   `json:"email,omitempty"`
	JobTitle           *string   `json:"jobTitle,omitempty"`
	Experience         *string   `json:"experience,omitempty"`
	Description        *string   `json:"description,omitempty"`
	Blog               *string   `json:"blog,omitempty"`
	FirstLinkType      *string   `json:"firstLinkType,omitempty"`
	FirstLink          *string   `json:"firstLink,omitempty"`
	SecondLinkType     *string   `json:"secondLinkType,omitempty"`
	SecondLink         *string   `json:"secondLink,omitempty"`
	Answer1            *string   `json:"answer1,omitempty"`
	Answer2            *string   `json:"answer2,omitempty"`
	Answer3            *string   `json:"answer3,omitempty"`
	TechStacks         *[]string `json:"techStacks,omitempty"`
	HubCard            *bool     `json:"hubCard,omitempty"`
	BackgroundImageURL *string   `json:"backgroundImageUrl,omitempty"`
	ProfileImageURL    *string   `json:"profileImageUrl,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p ProfilePatch) IsEmpty() bool {
	return p == (ProfilePatch{})
}

// Validate checks the invariants of the fields present in the patch
func (p ProfilePatch) Validate() error {
	if p.Nickname != nil {
		if err := ValidateNickname(*p.Nickname); err != nil {
			return err
		}
	}
	if p.TechStacks != nil && len(*p.TechStacks) > MaxTechStacks {
		return fmt.Errorf("%w: at most %d entries", ErrTooManyTechStacks, MaxTechStacks)
	}
	for _, answer := range []*string{p.Answer1, p.Answer2, p.Answer3} {
		if answer != nil && len([]rune(*answer)) > MaxAnswerLength {
			return fmt.Errorf("%w: answer exceeds %d characters", ErrInvalidInput, MaxAnswerLength)
		}
	}
	return nil
}

// Apply merges the patch into profile
func (p ProfilePatch) Apply(profile *Profile) {
	setString(&profile.Nickname, p.Nickname)
	setString(&profile.Email, p.Email)
	setString(&profile.JobTitle, p.JobTitle)
	setString(&profile.Experience, p.Experience)
	setString(&profile.Description, p.Description)
	setString(&profile.Blog, p.Blog)
	setString(&profile.FirstLinkType, p.FirstLinkType)
	setString(&profile.FirstLink, p.FirstLink)
	setString(&profile.SecondLinkType, p.SecondLinkType)
	setString(&profile.SecondLink, p.SecondLink)
	setString(&profile.Answer1, p.Answer1)
	setString(&profile.Answer2, p.Answer2)
	setString(&profile.Answer3, p.Answer3)
	setString(&profile.BackgroundImageURL, p.BackgroundImageURL)
	setString(&profile.ProfileImageURL, p.ProfileImageURL)
	if p.TechStacks != nil {
		profile.TechStacks = append([]string(nil), (*p.TechStacks)...)
	}
	if p.HubCard != nil {
		profile.HubCard = *p.HubCard
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// DirectoryFilter selects members listed in the hub directory
type DirectoryFilter struct {
	JobTitle string // Empty or "all" lists every job
	// CompleteOnly skips cards missing a nickname, job title or profile image
	CompleteOnly bool
	Limit        int
	Offset       int
}

// ProfileRepository defines the row operations on the profile table
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*Profile, error)
	Exists(ctx context.Context, userID string) (bool, error)
	Insert(ctx context.Context, profile *Profile) error
	Update(ctx context.Context, userID string, patch ProfilePatch) error
	// FindNicknameOwners returns the IDs of users holding nickname, excluding excludeUserID
	FindNicknameOwners(ctx context.Context, nickname, excludeUserID string) ([]string, error)
	GetByNickname(ctx context.Context, nickname string) (*Profile, error)
	ListByUserIDs(ctx context.Context, userIDs []string) ([]Profile, error)
	ListDirectory(ctx context.Context, filter DirectoryFilter) ([]Profile, error)
}
