package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserCan(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		user       *User
		capability Capability
		want       bool
	}{
		{"nil user", nil, CapabilityVote, false},
		{"vote below threshold", &User{Reputation: 14}, CapabilityVote, false},
		{"vote at threshold", &User{Reputation: 15}, CapabilityVote, true},
		{"comment at threshold", &User{Reputation: 50}, CapabilityComment, true},
		{"comment below threshold", &User{Reputation: 49}, CapabilityComment, false},
		{"create tags", &User{Reputation: 100}, CapabilityCreateTags, true},
		{"moderate by reputation", &User{Reputation: 2000}, CapabilityModerate, true},
		{"moderate by admin role", &User{Role: RoleAdmin}, CapabilityModerate, true},
		{"close needs 3000", &User{Reputation: 2999}, CapabilityCloseQuestion, false},
		{"admin can close", &User{Role: RoleAdmin}, CapabilityCloseQuestion, true},
		{"admin still needs rep to vote", &User{Role: RoleAdmin}, CapabilityVote, false},
		{"unknown capability", &User{Reputation: 1_000_000}, Capability("fly"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.Can(tt.capability))
		})
	}
}

func TestUserSummary(t *testing.T) {
	t.Parallel()
	var nilUser *User
	assert.Nil(t, nilUser.Summary())

	u := &User{ID: 4, Username: "ada", Reputation: 20, Avatar: "/uploads/avatars/4.webp", Email: "a@b.c"}
	assert.Equal(t, &UserSummary{ID: 4, Username: "ada", Reputation: 20, Avatar: "/uploads/avatars/4.webp"}, u.Summary())
}

func TestNewPageInfo(t *testing.T) {
	t.Parallel()
	assert.Equal(t, PageInfo{Page: 1, Limit: 10, Total: 0, Pages: 0}, NewPageInfo(1, 10, 0))
	assert.Equal(t, 3, NewPageInfo(1, 10, 21).Pages)
	assert.Equal(t, 2, NewPageInfo(2, 10, 20).Pages)
	assert.Equal(t, 0, NewPageInfo(1, 0, 5).Pages)
}
