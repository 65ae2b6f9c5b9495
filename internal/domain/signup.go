package domain

import "fmt"

// Signup wizard steps
const (
	StepJob        = 1
	StepExperience = 2
	StepNickname   = 3
	StepWelcome    = 4
)

// WizardField names a field collected by the signup wizard
type WizardField string

const (
	FieldJobTitle        WizardField = "job_title"
	FieldExperience      WizardField = "experience"
	FieldNickname        WizardField = "nickname"
	FieldBlog            WizardField = "blog"
	FieldProfileImageURL WizardField = "profile_image_url"
)

// WizardState is the ephemeral signup progress of one session
type WizardState struct {
	Step            int    `json:"step"`
	JobTitle        string `json:"jobTitle"`
	Experience      string `json:"experience"`
	Nickname        string `json:"nickname"`
	Blog            string `json:"blog"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// NewWizardState returns the initial wizard state
func NewWizardState() WizardState {
	return WizardState{Step: StepJob}
}

// WithField returns a copy of the state with field set to value
func (w WizardState) WithField(field WizardField, value string) (WizardState, error) {
	switch field {
	case FieldJobTitle:
		w.JobTitle = value
	case FieldExperience:
		w.Experience = value
	case FieldNickname:
		w.Nickname = value
	case FieldBlog:
		w.Blog = value
	case FieldProfileImageURL:
		w.ProfileImageURL = value
	default:
		return w, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return w, nil
}

// Advance moves to the next step. There is no ceiling.
func (w WizardState) Advance() WizardState {
	w.Step++
	return w
}

// Retreat moves to the previous step, never below the first one
func (w WizardState) Retreat() WizardState {
	if w.Step > StepJob {
		w.Step--
	}
	return w
}
