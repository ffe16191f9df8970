package app

import (
	"hash/fnv"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/domain"
)

const toggleStripes = 64

type reactionKey struct {
	message domain.MessageID
	emoji   string
}

// toggleStripe owns a shard of the toggle state. Everything keyed into
// the same stripe mutates under one mutex, which is what makes each
// toggle a single atomic step from the caller's point of view.
type toggleStripe struct {
	mu        sync.Mutex
	reactions map[reactionKey]map[domain.UserID]struct{}
	votes     map[domain.TargetID]map[domain.UserID]domain.VoteType
	scores    map[domain.TargetID]int
}

// ToggleEngine enforces at-most-one-state-per-user-per-key for reactions
// and votes. Keys hash to stripes; toggles on different keys proceed in
// parallel, toggles on the same key serialize.
type ToggleEngine struct {
	stripes [toggleStripes]*toggleStripe
}

func NewToggleEngine() *ToggleEngine {
	e := &ToggleEngine{}
	for i := range e.stripes {
		e.stripes[i] = &toggleStripe{
			reactions: make(map[reactionKey]map[domain.UserID]struct{}),
			votes:     make(map[domain.TargetID]map[domain.UserID]domain.VoteType),
			scores:    make(map[domain.TargetID]int),
		}
	}
	return e
}

func (e *ToggleEngine) stripeFor(key string) *toggleStripe {
	h := fnv.New32a()
	h.Write([]byte(key))
	return e.stripes[h.Sum32()%toggleStripes]
}

// ToggleReaction flips the user's membership in the (message, emoji)
// reaction set. Reports whether the user now reacts and a sorted snapshot
// of the set after the toggle.
func (e *ToggleEngine) ToggleReaction(message domain.MessageID, emoji string, user domain.UserID) (reacted bool, users []domain.UserID) {
	key := reactionKey{message: message, emoji: emoji}
	s := e.stripeFor(string(message) + "\x00" + emoji)

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.reactions[key]
	if !ok {
		set = make(map[domain.UserID]struct{})
		s.reactions[key] = set
	}
	if _, has := set[user]; has {
		delete(set, user)
		if len(set) == 0 {
			delete(s.reactions, key)
		}
		reacted = false
	} else {
		set[user] = struct{}{}
		reacted = true
	}

	users = make([]domain.UserID, 0, len(set))
	for u := range set {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	log.Debug().Str("module", "app.toggle").Str("message", string(message)).Str("emoji", emoji).Str("user", string(user)).Bool("reacted", reacted).Msg("reaction toggled")
	return reacted, users
}

// ReactionUsers returns the current reaction set for (message, emoji).
func (e *ToggleEngine) ReactionUsers(message domain.MessageID, emoji string) []domain.UserID {
	key := reactionKey{message: message, emoji: emoji}
	s := e.stripeFor(string(message) + "\x00" + emoji)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserID, 0, len(s.reactions[key]))
	for u := range s.reactions[key] {
		out = append(out, u)
	}
	return out
}

// CastVote computes the user's next vote from the stored prior, never from
// any client guess: same type toggles off, a different type replaces. The
// aggregate score absorbs the signed delta in the same critical section as
// the entry update, so it is always the sum of the stored entries. The
// prior state is returned so a failed downstream persist can be undone
// with RestoreVote.
func (e *ToggleEngine) CastVote(target domain.TargetID, user domain.UserID, requested domain.VoteType) (prior, next *domain.VoteType, score int) {
	s := e.stripeFor(string(target))

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.votes[target]
	if !ok {
		entries = make(map[domain.UserID]domain.VoteType)
		s.votes[target] = entries
	}

	priorScore := 0
	if p, has := entries[user]; has {
		v := p
		prior = &v
		priorScore = p.Score()
		if p == requested {
			delete(entries, user)
			if len(entries) == 0 {
				delete(s.votes, target)
			}
			next = nil
		} else {
			entries[user] = requested
			v := requested
			next = &v
		}
	} else {
		entries[user] = requested
		v := requested
		next = &v
	}

	nextScore := 0
	if next != nil {
		nextScore = next.Score()
	}
	s.scores[target] += nextScore - priorScore
	score = s.scores[target]
	if score == 0 && next == nil && len(entries) == 0 {
		delete(s.scores, target)
	}

	log.Debug().Str("module", "app.toggle").Str("target", string(target)).Str("user", string(user)).Int("score", score).Msg("vote cast")
	return prior, next, score
}

// RestoreVote forces the user's entry back to a known state (nil removes
// it), adjusting the aggregate by the same signed-delta rule as CastVote.
// Used to undo an in-memory toggle whose durable write failed.
func (e *ToggleEngine) RestoreVote(target domain.TargetID, user domain.UserID, vote *domain.VoteType) int {
	s := e.stripeFor(string(target))

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.votes[target]
	if !ok {
		entries = make(map[domain.UserID]domain.VoteType)
		s.votes[target] = entries
	}

	curScore := 0
	if cur, has := entries[user]; has {
		curScore = cur.Score()
	}

	restoredScore := 0
	if vote == nil {
		delete(entries, user)
		if len(entries) == 0 {
			delete(s.votes, target)
		}
	} else {
		entries[user] = *vote
		restoredScore = vote.Score()
	}

	s.scores[target] += restoredScore - curScore
	score := s.scores[target]
	if score == 0 && vote == nil && len(entries) == 0 {
		delete(s.scores, target)
	}

	log.Debug().Str("module", "app.toggle").Str("target", string(target)).Str("user", string(user)).Int("score", score).Msg("vote restored")
	return score
}

// Score returns the target's current aggregate.
func (e *ToggleEngine) Score(target domain.TargetID) int {
	s := e.stripeFor(string(target))
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[target]
}

// Vote returns the user's current vote on the target, if any.
func (e *ToggleEngine) Vote(target domain.TargetID, user domain.UserID) (domain.VoteType, bool) {
	s := e.stripeFor(string(target))
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.votes[target][user]
	return v, ok
}
