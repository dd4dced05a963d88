package model

// RelationshipStatus is the derived, client-visible state of a pair of users
// as seen from one side. It is never persisted; it is recomputed from the
// friendships and friend_requests tables on every projection.
type RelationshipStatus string

const (
	StatusNone            RelationshipStatus = "none"
	StatusOutgoingPending RelationshipStatus = "outgoing_pending"
	StatusIncomingPending RelationshipStatus = "incoming_pending"
	StatusFriends         RelationshipStatus = "friends"
)

// SortPair returns the two user IDs in lexicographic order.
func SortPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// PairKey returns the canonical key for an unordered pair of user IDs.
// The same key comes out no matter which direction the pair is given in,
// so it can back unique indexes and per-pair locks.
func PairKey(a, b string) string {
	a, b = SortPair(a, b)
	return a + "|" + b
}
