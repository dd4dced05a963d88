package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"langbuddy/internal/model"
	"langbuddy/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memoryStore is an in-memory RelationshipRepository with the same
// uniqueness guarantees as the Postgres store: one pending request and one
// friendship edge per pair.
type memoryStore struct {
	mu          sync.Mutex
	requests    map[string]*model.FriendRequest
	friendships map[string]*model.Friendship // keyed by pair key
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		requests:    make(map[string]*model.FriendRequest),
		friendships: make(map[string]*model.Friendship),
	}
}

func (m *memoryStore) CreateRequest(ctx context.Context, request *model.FriendRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pairKey := model.PairKey(request.SenderID, request.RecipientID)
	for _, r := range m.requests {
		if r.PairKey == pairKey && r.IsPending() {
			return repository.ErrDuplicatePair
		}
	}

	request.ID = uuid.New().String()
	request.PairKey = pairKey
	request.CreatedAt = time.Now()
	stored := *request
	m.requests[request.ID] = &stored
	return nil
}

func (m *memoryStore) FindRequestByID(ctx context.Context, id string) (*model.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *memoryStore) PendingRequestBetween(ctx context.Context, a, b string) (*model.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pairKey := model.PairKey(a, b)
	for _, r := range m.requests {
		if r.PairKey == pairKey && r.IsPending() {
			copied := *r
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryStore) FindPendingByRecipientID(ctx context.Context, recipientID string) ([]*model.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.FriendRequest
	for _, r := range m.requests {
		if r.RecipientID == recipientID && r.IsPending() {
			copied := *r
			out = append(out, &copied)
		}
	}
	sortRequests(out)
	return out, nil
}

func (m *memoryStore) FindPendingBySenderID(ctx context.Context, senderID string) ([]*model.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.FriendRequest
	for _, r := range m.requests {
		if r.SenderID == senderID && r.IsPending() {
			copied := *r
			out = append(out, &copied)
		}
	}
	sortRequests(out)
	return out, nil
}

func (m *memoryStore) CountPendingByRecipientID(ctx context.Context, recipientID string) (int64, error) {
	pending, _ := m.FindPendingByRecipientID(ctx, recipientID)
	return int64(len(pending)), nil
}

func (m *memoryStore) ResolveRequest(ctx context.Context, id, toStatus string, resolvedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok || !r.IsPending() {
		return gorm.ErrRecordNotFound
	}
	r.Status = toStatus
	r.ResolvedAt = &resolvedAt
	return nil
}

func (m *memoryStore) AcceptRequest(ctx context.Context, id string, resolvedAt time.Time) (*model.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok || !r.IsPending() {
		return nil, gorm.ErrRecordNotFound
	}
	if _, exists := m.friendships[r.PairKey]; exists {
		return nil, repository.ErrDuplicatePair
	}

	r.Status = model.RequestStatusAccepted
	r.ResolvedAt = &resolvedAt

	a, b := model.SortPair(r.SenderID, r.RecipientID)
	friendship := &model.Friendship{
		ID:        uuid.New().String(),
		UserAID:   a,
		UserBID:   b,
		PairKey:   r.PairKey,
		CreatedAt: resolvedAt,
	}
	m.friendships[r.PairKey] = friendship

	copied := *friendship
	return &copied, nil
}

func (m *memoryStore) FriendshipBetween(ctx context.Context, a, b string) (*model.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.friendships[model.PairKey(a, b)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f
	return &copied, nil
}

func (m *memoryStore) FindFriendshipsByUserID(ctx context.Context, userID string) ([]*model.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Friendship
	for _, f := range m.friendships {
		if f.UserAID == userID || f.UserBID == userID {
			copied := *f
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryStore) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	friendships, _ := m.FindFriendshipsByUserID(ctx, userID)
	ids := make([]string, 0, len(friendships))
	for _, f := range friendships {
		ids = append(ids, f.OtherUserID(userID))
	}
	return ids, nil
}

func (m *memoryStore) DeleteFriendshipBetween(ctx context.Context, a, b string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pairKey := model.PairKey(a, b)
	if _, ok := m.friendships[pairKey]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.friendships, pairKey)
	return nil
}

func (m *memoryStore) FriendshipsWith(ctx context.Context, viewerID string, otherIDs []string) ([]*model.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Friendship
	for _, id := range otherIDs {
		if f, ok := m.friendships[model.PairKey(viewerID, id)]; ok {
			copied := *f
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryStore) PendingRequestsWith(ctx context.Context, viewerID string, otherIDs []string) ([]*model.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make(map[string]bool, len(otherIDs))
	for _, id := range otherIDs {
		keys[model.PairKey(viewerID, id)] = true
	}

	var out []*model.FriendRequest
	for _, r := range m.requests {
		if keys[r.PairKey] && r.IsPending() {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

// pendingCount counts pending requests for a pair, for invariant checks
func (m *memoryStore) pendingCount(a, b string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	pairKey := model.PairKey(a, b)
	count := 0
	for _, r := range m.requests {
		if r.PairKey == pairKey && r.IsPending() {
			count++
		}
	}
	return count
}

// injectFriendship inserts an edge directly, bypassing the engine
func (m *memoryStore) injectFriendship(a, b string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ua, ub := model.SortPair(a, b)
	pairKey := model.PairKey(a, b)
	m.friendships[pairKey] = &model.Friendship{
		ID:        uuid.New().String(),
		UserAID:   ua,
		UserBID:   ub,
		PairKey:   pairKey,
		CreatedAt: time.Now(),
	}
}

// injectPendingRequest inserts a pending request directly, bypassing the
// uniqueness check, for inconsistency scenarios
func (m *memoryStore) injectPendingRequest(senderID, recipientID string) *model.FriendRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := &model.FriendRequest{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		PairKey:     model.PairKey(senderID, recipientID),
		Status:      model.RequestStatusPending,
		CreatedAt:   time.Now(),
	}
	m.requests[r.ID] = r
	return r
}

func sortRequests(requests []*model.FriendRequest) {
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
}

// memoryDirectory is an in-memory user directory
type memoryDirectory struct {
	mu    sync.Mutex
	users map[string]model.User
	order []string
}

func newMemoryDirectory(users ...model.User) *memoryDirectory {
	d := &memoryDirectory{users: make(map[string]model.User)}
	for _, u := range users {
		d.users[u.ID] = u
		d.order = append(d.order, u.ID)
	}
	return d
}

func (d *memoryDirectory) FindByID(ctx context.Context, id string) (*model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (d *memoryDirectory) FindByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []model.User
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *memoryDirectory) SearchUsers(ctx context.Context, keyword string, limit int) ([]model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	keyword = strings.ToLower(keyword)
	var out []model.User
	for _, id := range d.order {
		u := d.users[id]
		if strings.Contains(strings.ToLower(u.FullName), keyword) ||
			strings.Contains(strings.ToLower(u.Username), keyword) {
			out = append(out, u)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (d *memoryDirectory) RecommendUsers(ctx context.Context, viewerID string, limit int) ([]model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []model.User
	for _, id := range d.order {
		if id == viewerID {
			continue
		}
		out = append(out, d.users[id])
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// fakeNotifier records relationship events in memory
type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeNotifier) SendFriendRequestNotification(recipientID, senderID, senderName, requestID string) error {
	f.record("friend_request:" + recipientID)
	return nil
}

func (f *fakeNotifier) SendRequestAcceptedNotification(recipientID, senderID, senderName, requestID string) error {
	f.record("request_accepted:" + recipientID)
	return nil
}

func (f *fakeNotifier) SendRequestDeclinedNotification(recipientID, senderID, senderName, requestID string) error {
	f.record("request_declined:" + recipientID)
	return nil
}

func (f *fakeNotifier) SendFriendRemovedNotification(recipientID, senderID, senderName string) error {
	f.record("friend_removed:" + recipientID)
	return nil
}

func (f *fakeNotifier) GetNotificationsByUserID(userID string, limit, offset int) ([]*model.Notification, error) {
	return nil, nil
}

func (f *fakeNotifier) GetUnreadNotifications(userID string) ([]*model.Notification, error) {
	return nil, nil
}

func (f *fakeNotifier) GetUnreadCount(userID string) (int64, error) { return 0, nil }

func (f *fakeNotifier) MarkAsRead(notificationID, userID string) error { return nil }

func (f *fakeNotifier) MarkAllAsRead(userID string) error { return nil }

func (f *fakeNotifier) DeleteNotification(notificationID, userID string) error { return nil }

func (f *fakeNotifier) SaveFromMessage(msg *NotificationMessage) error { return nil }
