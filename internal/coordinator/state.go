package coordinator

import "github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"

// State is the session state held by a Coordinator
type State struct {
	Identity *domain.Identity   `json:"identity"`
	Profile  *domain.Profile    `json:"profile"`
	Wizard   domain.WizardState `json:"wizard"`
	Liked    map[string]bool    `json:"liked"` // keyed by member nickname
	Loading  bool               `json:"loading"`

	inflight int
	// epoch changes whenever the identity does; results fetched under an older epoch are dropped
	epoch uint64
}

// InitialState returns the state of a fresh session
func InitialState() State {
	return State{
		Wizard: domain.NewWizardState(),
		Liked:  map[string]bool{},
	}
}

// clone returns a deep copy safe to hand to readers
func (s State) clone() State {
	if s.Identity != nil {
		identity := *s.Identity
		s.Identity = &identity
	}
	if s.Profile != nil {
		profile := s.Profile.Clone()
		s.Profile = &profile
	}
	liked := make(map[string]bool, len(s.Liked))
	for k, v := range s.Liked {
		liked[k] = v
	}
	s.Liked = liked
	return s
}

type action interface{ isAction() }

type identitySet struct {
	identity domain.Identity
}

type identityCleared struct{}

type profileLoaded struct {
	profile domain.Profile
	epoch   uint64
}

type profileInvalidated struct{}

type profileMerged struct {
	patch domain.ProfilePatch
	epoch uint64
}

type wizardFieldSet struct {
	field domain.WizardField
	value string
}

type wizardAdvanced struct{}

type wizardRetreated struct{}

type wizardReset struct{}

type likeSet struct {
	nickname string
	liked    bool
	epoch    uint64
}

type likesLoaded struct {
	liked map[string]bool
	epoch uint64
}

type loadingStarted struct{}

type loadingFinished struct{}

func (identitySet) isAction()        {}
func (identityCleared) isAction()    {}
func (profileLoaded) isAction()      {}
func (profileInvalidated) isAction() {}
func (profileMerged) isAction()      {}
func (wizardFieldSet) isAction()     {}
func (wizardAdvanced) isAction()     {}
func (wizardRetreated) isAction()    {}
func (wizardReset) isAction()        {}
func (likeSet) isAction()            {}
func (likesLoaded) isAction()        {}
func (loadingStarted) isAction()     {}
func (loadingFinished) isAction()    {}

// reduce returns the state after applying a. It never mutates s.
func reduce(s State, a action) State {
	switch a := a.(type) {
	case identitySet:
		identity := a.identity
		if s.Identity == nil || s.Identity.UserID != identity.UserID {
			s.epoch++
			s.Profile = nil
			s.Liked = map[string]bool{}
		}
		s.Identity = &identity

	case identityCleared:
		if s.Identity != nil || s.Profile != nil || len(s.Liked) > 0 {
			s.epoch++
		}
		s.Identity = nil
		s.Profile = nil
		s.Liked = map[string]bool{}

	case profileLoaded:
		if a.epoch != s.epoch || s.Identity == nil {
			return s
		}
		profile := a.profile.Clone()
		s.Profile = &profile

	case profileInvalidated:
		s.Profile = nil

	case profileMerged:
		if a.epoch != s.epoch || s.Profile == nil {
			return s
		}
		profile := s.Profile.Clone()
		a.patch.Apply(&profile)
		s.Profile = &profile

	case wizardFieldSet:
		// Unknown fields are rejected before dispatch
		if w, err := s.Wizard.WithField(a.field, a.value); err == nil {
			s.Wizard = w
		}

	case wizardAdvanced:
		s.Wizard = s.Wizard.Advance()

	case wizardRetreated:
		s.Wizard = s.Wizard.Retreat()

	case wizardReset:
		s.Wizard = domain.NewWizardState()

	case likeSet:
		if a.epoch != s.epoch {
			return s
		}
		liked := copyLiked(s.Liked)
		if a.liked {
			liked[a.nickname] = true
		} else {
			delete(liked, a.nickname)
		}
		s.Liked = liked

	case likesLoaded:
		if a.epoch != s.epoch {
			return s
		}
		s.Liked = copyLiked(a.liked)

	case loadingStarted:
		s.inflight++
		s.Loading = true

	case loadingFinished:
		if s.inflight > 0 {
			s.inflight--
		}
		s.Loading = s.inflight > 0
	}
	return s
}

func copyLiked(src map[string]bool) map[string]bool {
	dst := make(map[string]bool, len(src))
	for k, v := range src {
		if v {
			dst[k] = true
		}
	}
	return dst
}
