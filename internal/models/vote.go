package models

import "time"

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// IsValid reports whether v is upvote or downvote.
func (v VoteType) IsValid() bool {
	return v == VoteUp || v == VoteDown
}

// VoteTarget identifies the kind of votable entity.
type VoteTarget string

const (
	VoteTargetQuestion VoteTarget = "question"
	VoteTargetAnswer   VoteTarget = "answer"
)

// Vote is the stored membership of one user in one vote set.
type Vote struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TargetType VoteTarget `gorm:"size:10;not null;uniqueIndex:idx_votes_target_user,priority:1;index:idx_votes_target,priority:1" json:"targetType"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_votes_target_user,priority:2;index:idx_votes_target,priority:2" json:"targetId"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_votes_target_user,priority:3;index" json:"userId"`
	Type       VoteType   `gorm:"column:vote_type;size:10;not null" json:"voteType"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// VoteSet is a hashed set of user IDs.
type VoteSet map[uint]struct{}

// Has reports membership of userID.
func (s VoteSet) Has(userID uint) bool {
	_, ok := s[userID]
	return ok
}

// Votes holds the two mutually exclusive vote sets of an entity.
type Votes struct {
	Up   VoteSet
	Down VoteSet
}

// NewVotes builds the vote sets from stored rows.
func NewVotes(rows []Vote) Votes {
	v := Votes{Up: VoteSet{}, Down: VoteSet{}}
	for _, row := range rows {
		switch row.Type {
		case VoteUp:
			v.Up[row.UserID] = struct{}{}
		case VoteDown:
			v.Down[row.UserID] = struct{}{}
		}
	}
	return v
}

// Count is |upvoters| - |downvoters|.
func (v Votes) Count() int {
	return len(v.Up) - len(v.Down)
}

// Of returns the vote userID currently holds, or nil.
func (v Votes) Of(userID uint) *VoteType {
	switch {
	case v.Up.Has(userID):
		t := VoteUp
		return &t
	case v.Down.Has(userID):
		t := VoteDown
		return &t
	}
	return nil
}

// Apply removes userID from both sets and then records voteType, unless the
// user already held that same vote, in which case the vote is retracted.
// It returns the vote the user holds afterwards (nil when retracted).
func (v *Votes) Apply(userID uint, voteType VoteType) *VoteType {
	if v.Up == nil {
		v.Up = VoteSet{}
	}
	if v.Down == nil {
		v.Down = VoteSet{}
	}
	previous := v.Of(userID)

	delete(v.Up, userID)
	delete(v.Down, userID)

	if previous != nil && *previous == voteType {
		return nil
	}
	switch voteType {
	case VoteUp:
		v.Up[userID] = struct{}{}
	case VoteDown:
		v.Down[userID] = struct{}{}
	}
	t := voteType
	return &t
}

// VoteResult is what the vote endpoints return.
type VoteResult struct {
	VoteCount int       `json:"voteCount"`
	UserVote  *VoteType `json:"userVote"`
	// Cast is true when the call recorded a new vote rather than retracting one.
	Cast bool `json:"-"`
}
