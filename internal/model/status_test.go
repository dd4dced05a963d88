package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKeyIsOrderInsensitive(t *testing.T) {
	assert.Equal(t, PairKey("a", "b"), PairKey("b", "a"))
	assert.Equal(t, "a|b", PairKey("b", "a"))
}

func TestSortPair(t *testing.T) {
	a, b := SortPair("zeta", "alpha")
	assert.Equal(t, "alpha", a)
	assert.Equal(t, "zeta", b)

	a, b = SortPair("alpha", "zeta")
	assert.Equal(t, "alpha", a)
	assert.Equal(t, "zeta", b)
}

func TestFriendshipOtherUserID(t *testing.T) {
	f := Friendship{UserAID: "a", UserBID: "b"}
	assert.Equal(t, "b", f.OtherUserID("a"))
	assert.Equal(t, "a", f.OtherUserID("b"))
}

func TestFriendRequestStates(t *testing.T) {
	r := FriendRequest{Status: RequestStatusPending}
	assert.True(t, r.IsPending())
	assert.False(t, r.IsResolved())

	for _, status := range []string{RequestStatusAccepted, RequestStatusDeclined, RequestStatusCancelled} {
		r := FriendRequest{Status: status}
		assert.False(t, r.IsPending())
		assert.True(t, r.IsResolved())
	}
}
