package coordinator

import (
	"context"
	"errors"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
)

// FieldError is an inline error tied to one form field
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// SubmitInput carries the confirmed nickname and the availability the user saw
type SubmitInput struct {
	Nickname     string
	Availability domain.Availability
}

// SubmitProfile finalizes signup: it persists the wizard fields together with
// the nickname and email, then advances the wizard. Every failure is returned
// as a FieldError and leaves the wizard step unchanged.
func (c *Coordinator) SubmitProfile(ctx context.Context, in SubmitInput) *FieldError {
	identity, epoch, err := c.currentIdentity()
	if err != nil {
		return &FieldError{Field: "session", Err: err}
	}
	if identity.Email == "" {
		return &FieldError{Field: "email", Err: domain.ErrNoVerifiableEmail}
	}

	wizard := c.Snapshot().Wizard
	nickname := in.Nickname
	if nickname == "" {
		nickname = wizard.Nickname
	}
	if err := domain.ValidateNickname(nickname); err != nil {
		return &FieldError{Field: "nickname", Err: err}
	}

	availability := in.Availability
	if availability == "" {
		if candidate, a := c.nickname.Result(); candidate == nickname {
			availability = a
		}
	}
	if availability == domain.AvailabilityTaken {
		return &FieldError{Field: "nickname", Err: domain.ErrNicknameTaken}
	}

	fresh, err := c.nickname.Check(ctx, nickname)
	if err != nil {
		return &FieldError{Field: "nickname", Err: err}
	}
	if fresh == domain.AvailabilityTaken {
		return &FieldError{Field: "nickname", Err: domain.ErrNicknameTaken}
	}

	email := identity.Email
	patch := domain.ProfilePatch{
		JobTitle:   &wizard.JobTitle,
		Experience: &wizard.Experience,
		Nickname:   &nickname,
		Email:      &email,
	}
	if wizard.ProfileImageURL != "" {
		patch.ProfileImageURL = &wizard.ProfileImageURL
	}
	if wizard.Blog != "" {
		patch.Blog = &wizard.Blog
	}

	if err := c.persistProfile(ctx, identity, epoch, patch); err != nil {
		if errors.Is(err, domain.ErrNicknameTaken) {
			return &FieldError{Field: "nickname", Err: err}
		}
		return &FieldError{Field: "profile", Err: err}
	}

	c.dispatch(wizardFieldSet{field: domain.FieldNickname, value: nickname})
	c.dispatch(wizardAdvanced{})
	if c.Snapshot().Profile == nil {
		_ = c.FetchProfile(ctx)
	}
	return nil
}
