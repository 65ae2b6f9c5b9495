package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/dafibh/gatherhub/gatherhub-backend/internal/domain"
)

// NicknameChecker derives the availability of the nickname being typed.
// Every new candidate bumps a generation token; a check that completes for an
// older generation is discarded.
type NicknameChecker struct {
	coord    *Coordinator
	debounce time.Duration

	mu           sync.Mutex
	generation   uint64
	candidate    string
	availability domain.Availability
	timer        *time.Timer
	onResolved   func(candidate string, availability domain.Availability)
	// notify pushes every settled result to the member's open tabs
	notify func(candidate string, availability domain.Availability)
}

func newNicknameChecker(coord *Coordinator, debounce time.Duration) *NicknameChecker {
	return &NicknameChecker{
		coord:        coord,
		debounce:     debounce,
		availability: domain.AvailabilityUnknown,
		notify:       coord.publishNicknameResult,
	}
}

// OnResolved registers a callback invoked when a check settles for the live candidate
func (n *NicknameChecker) OnResolved(fn func(candidate string, availability domain.Availability)) {
	n.mu.Lock()
	n.onResolved = fn
	n.mu.Unlock()
}

// Check resolves the availability of candidate right away.
// A locally invalid candidate is unknown and the current profile's own
// nickname is available, both without a remote query. A remote failure
// yields unknown together with the error.
func (n *NicknameChecker) Check(ctx context.Context, candidate string) (domain.Availability, error) {
	if availability, ok := n.localResult(candidate); ok {
		return availability, nil
	}

	var excludeUserID string
	if identity, _, err := n.coord.currentIdentity(); err == nil {
		excludeUserID = identity.UserID
	}

	var owners []string
	err := n.coord.call(ctx, "check_nickname", func(ctx context.Context) error {
		var err error
		owners, err = n.coord.profiles.FindNicknameOwners(ctx, candidate, excludeUserID)
		return err
	})
	if err != nil {
		n.coord.logger.Warn().Err(err).Str("nickname", candidate).Msg("Nickname availability check failed")
		n.coord.metrics.RecordNicknameCheck("error")
		return domain.AvailabilityUnknown, err
	}

	availability := domain.AvailabilityAvailable
	if len(owners) > 0 {
		availability = domain.AvailabilityTaken
	}
	n.coord.metrics.RecordNicknameCheck(string(availability))
	return availability, nil
}

func (n *NicknameChecker) localResult(candidate string) (domain.Availability, bool) {
	if domain.ValidateNickname(candidate) != nil {
		return domain.AvailabilityUnknown, true
	}
	if n.coord.isOwnNickname(candidate) {
		return domain.AvailabilityAvailable, true
	}
	return "", false
}

// Update records a new live candidate and schedules a debounced check.
// Locally decidable candidates settle at once. Repeating the live candidate
// keeps the pending or settled result.
func (n *NicknameChecker) Update(candidate string) {
	n.mu.Lock()
	if candidate == n.candidate && n.generation > 0 {
		n.mu.Unlock()
		return
	}
	gen := n.begin(candidate)
	n.mu.Unlock()

	if availability, ok := n.localResult(candidate); ok {
		n.settle(gen, candidate, availability)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if gen != n.generation {
		return
	}
	n.timer = time.AfterFunc(n.debounce, func() {
		availability, err := n.Check(context.Background(), candidate)
		if err != nil {
			availability = domain.AvailabilityUnknown
		}
		n.settle(gen, candidate, availability)
	})
}

// Resolve makes candidate live and checks it without debouncing. current is
// false when a newer candidate arrived while the check was in flight, in which
// case the result was not recorded.
func (n *NicknameChecker) Resolve(ctx context.Context, candidate string) (availability domain.Availability, current bool, err error) {
	n.mu.Lock()
	gen := n.begin(candidate)
	n.mu.Unlock()

	availability, err = n.Check(ctx, candidate)
	return availability, n.settle(gen, candidate, availability), err
}

// begin starts a new generation for candidate. Callers hold n.mu.
func (n *NicknameChecker) begin(candidate string) uint64 {
	n.generation++
	n.candidate = candidate
	n.availability = domain.AvailabilityUnknown
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	return n.generation
}

// settle records a finished check if it still belongs to the live candidate
func (n *NicknameChecker) settle(gen uint64, candidate string, availability domain.Availability) bool {
	n.mu.Lock()
	if gen != n.generation || candidate != n.candidate {
		n.mu.Unlock()
		n.coord.logger.Debug().Str("nickname", candidate).Msg("Discarded stale nickname check")
		return false
	}
	n.availability = availability
	n.timer = nil
	callback, notify := n.onResolved, n.notify
	n.mu.Unlock()

	if notify != nil {
		notify(candidate, availability)
	}
	if callback != nil {
		callback(candidate, availability)
	}
	return true
}

// Result returns the live candidate and its availability
func (n *NicknameChecker) Result() (string, domain.Availability) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.candidate, n.availability
}

// Stop cancels any pending check and resets the checker
func (n *NicknameChecker) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.generation++
	n.candidate = ""
	n.availability = domain.AvailabilityUnknown
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
