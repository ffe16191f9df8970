package domain

import "errors"

var ErrBadVoteType = errors.New("unknown vote type")

// TargetID identifies a votable item (post or comment).
type TargetID string

type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

func ParseVoteType(s string) (VoteType, error) {
	switch VoteType(s) {
	case VoteUp:
		return VoteUp, nil
	case VoteDown:
		return VoteDown, nil
	}
	return "", ErrBadVoteType
}

// Score is the signed contribution of one vote to a target's aggregate.
func (v VoteType) Score() int {
	switch v {
	case VoteUp:
		return 1
	case VoteDown:
		return -1
	}
	return 0
}
