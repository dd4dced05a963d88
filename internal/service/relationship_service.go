package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"langbuddy/internal/model"
	"langbuddy/internal/repository"

	"gorm.io/gorm"
)

// RelationshipService is the relationship engine: the only writer of
// friend request and friendship state. Every mutation runs under a
// per-pair lock so concurrent calls on the same pair resolve
// deterministically; the store's unique pair indexes are the backstop
// across processes.
type RelationshipService interface {
	SendRequest(ctx context.Context, senderID, recipientID string) (*model.FriendRequest, error)
	AcceptRequest(ctx context.Context, requestID, actorID string) (*model.FriendRequest, error)
	DeclineRequest(ctx context.Context, requestID, actorID string) (*model.FriendRequest, error)
	CancelRequest(ctx context.Context, requestID, actorID string) (*model.FriendRequest, error)
	RemoveFriend(ctx context.Context, userID, friendID string) error

	ListFriends(ctx context.Context, userID string) ([]*model.Friendship, error)
	ListIncomingRequests(ctx context.Context, userID string) ([]*model.FriendRequest, error)
	ListOutgoingRequests(ctx context.Context, userID string) ([]*model.FriendRequest, error)
	CountIncomingRequests(ctx context.Context, userID string) (int64, error)
}

type relationshipService struct {
	relationshipRepo repository.RelationshipRepository
	userRepo         repository.UserRepository
	notifService     NotificationService
	locks            *pairLocks
	storeTimeout     time.Duration
}

func NewRelationshipService(
	relationshipRepo repository.RelationshipRepository,
	userRepo repository.UserRepository,
	notifService NotificationService,
	storeTimeout time.Duration,
) RelationshipService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &relationshipService{
		relationshipRepo: relationshipRepo,
		userRepo:         userRepo,
		notifService:     notifService,
		locks:            newPairLocks(),
		storeTimeout:     storeTimeout,
	}
}

// SendRequest creates a pending friend request from sender to recipient.
// Retries are safe: a duplicate call surfaces ErrRequestAlreadyPending
// instead of creating a second row.
func (s *relationshipService) SendRequest(ctx context.Context, senderID, recipientID string) (*model.FriendRequest, error) {
	if senderID == recipientID {
		return nil, fmt.Errorf("%w: cannot send friend request to yourself", ErrInvalidOperation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	// Check both users exist before taking the pair lock
	sender, err := s.userRepo.FindByID(ctx, senderID)
	if err != nil {
		return nil, translateStoreError(err, "sender")
	}
	if _, err := s.userRepo.FindByID(ctx, recipientID); err != nil {
		return nil, translateStoreError(err, "recipient")
	}

	unlock := s.locks.Lock(model.PairKey(senderID, recipientID))
	defer unlock()

	// Friendship takes precedence over any request history
	if _, err := s.relationshipRepo.FriendshipBetween(ctx, senderID, recipientID); err == nil {
		return nil, ErrAlreadyFriends
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translateStoreError(err, "friendship lookup")
	}

	// At most one outstanding request per pair, in either direction
	if _, err := s.relationshipRepo.PendingRequestBetween(ctx, senderID, recipientID); err == nil {
		return nil, ErrRequestAlreadyPending
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translateStoreError(err, "pending lookup")
	}

	request := &model.FriendRequest{
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      model.RequestStatusPending,
	}

	if err := s.relationshipRepo.CreateRequest(ctx, request); err != nil {
		// Another process won the insert race on the pair index
		if errors.Is(err, repository.ErrDuplicatePair) {
			return nil, ErrRequestAlreadyPending
		}
		return nil, translateStoreError(err, "create request")
	}

	// Notify recipient (async, non-blocking)
	go func() {
		s.notifService.SendFriendRequestNotification(
			recipientID,
			senderID,
			sender.FullName,
			request.ID,
		)
	}()

	return request, nil
}

// AcceptRequest resolves a pending request to accepted and creates the
// friendship edge atomically. Only the recipient may accept.
func (s *relationshipService) AcceptRequest(ctx context.Context, requestID, actorID string) (*model.FriendRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	request, err := s.relationshipRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, translateStoreError(err, "request")
	}

	if request.RecipientID != actorID {
		return nil, fmt.Errorf("%w: only the recipient can accept a friend request", ErrForbidden)
	}

	unlock := s.locks.Lock(request.PairKey)
	defer unlock()

	now := time.Now()
	if _, err := s.relationshipRepo.AcceptRequest(ctx, requestID, now); err != nil {
		// The row was resolved between the read and the compare-and-set
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, repository.ErrDuplicatePair) {
			return nil, ErrNotFound
		}
		return nil, translateStoreError(err, "accept request")
	}

	request.Status = model.RequestStatusAccepted
	request.ResolvedAt = &now

	// Notify sender (async)
	go func() {
		recipient, _ := s.userRepo.FindByID(context.Background(), request.RecipientID)
		if recipient != nil {
			s.notifService.SendRequestAcceptedNotification(
				request.SenderID,
				request.RecipientID,
				recipient.FullName,
				request.ID,
			)
		}
	}()

	return request, nil
}

// DeclineRequest resolves a pending request to declined. Only the
// recipient may decline.
func (s *relationshipService) DeclineRequest(ctx context.Context, requestID, actorID string) (*model.FriendRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	request, err := s.relationshipRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, translateStoreError(err, "request")
	}

	if request.RecipientID != actorID {
		return nil, fmt.Errorf("%w: only the recipient can decline a friend request", ErrForbidden)
	}

	unlock := s.locks.Lock(request.PairKey)
	defer unlock()

	now := time.Now()
	if err := s.relationshipRepo.ResolveRequest(ctx, requestID, model.RequestStatusDeclined, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, translateStoreError(err, "decline request")
	}

	request.Status = model.RequestStatusDeclined
	request.ResolvedAt = &now

	// Notify sender (async)
	go func() {
		recipient, _ := s.userRepo.FindByID(context.Background(), request.RecipientID)
		if recipient != nil {
			s.notifService.SendRequestDeclinedNotification(
				request.SenderID,
				request.RecipientID,
				recipient.FullName,
				request.ID,
			)
		}
	}()

	return request, nil
}

// CancelRequest withdraws a pending request. Only the sender may cancel,
// and a request that already reached a terminal state conflicts instead of
// silently succeeding.
func (s *relationshipService) CancelRequest(ctx context.Context, requestID, actorID string) (*model.FriendRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	request, err := s.relationshipRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, translateStoreError(err, "request")
	}

	if request.SenderID != actorID {
		return nil, fmt.Errorf("%w: only the sender can cancel a friend request", ErrForbidden)
	}

	if request.IsResolved() {
		return nil, fmt.Errorf("%w: request already %s", ErrConflict, request.Status)
	}

	unlock := s.locks.Lock(request.PairKey)
	defer unlock()

	now := time.Now()
	if err := s.relationshipRepo.ResolveRequest(ctx, requestID, model.RequestStatusCancelled, now); err != nil {
		// Resolved by the other side between the read and the compare-and-set
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: request already resolved", ErrConflict)
		}
		return nil, translateStoreError(err, "cancel request")
	}

	request.Status = model.RequestStatusCancelled
	request.ResolvedAt = &now

	return request, nil
}

// RemoveFriend deletes the friendship edge. Request history is untouched;
// re-friending requires a fresh request cycle.
func (s *relationshipService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return fmt.Errorf("%w: cannot remove yourself", ErrInvalidOperation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	unlock := s.locks.Lock(model.PairKey(userID, friendID))
	defer unlock()

	if err := s.relationshipRepo.DeleteFriendshipBetween(ctx, userID, friendID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return translateStoreError(err, "remove friend")
	}

	// Notify the removed friend (async)
	go func() {
		remover, _ := s.userRepo.FindByID(context.Background(), userID)
		if remover != nil {
			s.notifService.SendFriendRemovedNotification(friendID, userID, remover.FullName)
		}
	}()

	return nil
}

// ListFriends lists the friendship edges for a user
func (s *relationshipService) ListFriends(ctx context.Context, userID string) ([]*model.Friendship, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	friendships, err := s.relationshipRepo.FindFriendshipsByUserID(ctx, userID)
	if err != nil {
		return nil, translateStoreError(err, "list friends")
	}
	return friendships, nil
}

// ListIncomingRequests lists pending requests addressed to the user
func (s *relationshipService) ListIncomingRequests(ctx context.Context, userID string) ([]*model.FriendRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	requests, err := s.relationshipRepo.FindPendingByRecipientID(ctx, userID)
	if err != nil {
		return nil, translateStoreError(err, "incoming requests")
	}
	return requests, nil
}

// ListOutgoingRequests lists pending requests the user has sent
func (s *relationshipService) ListOutgoingRequests(ctx context.Context, userID string) ([]*model.FriendRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	requests, err := s.relationshipRepo.FindPendingBySenderID(ctx, userID)
	if err != nil {
		return nil, translateStoreError(err, "outgoing requests")
	}
	return requests, nil
}

// CountIncomingRequests counts pending requests addressed to the user
func (s *relationshipService) CountIncomingRequests(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	count, err := s.relationshipRepo.CountPendingByRecipientID(ctx, userID)
	if err != nil {
		return 0, translateStoreError(err, "count incoming")
	}
	return count, nil
}

// translateStoreError maps store failures onto the typed error taxonomy.
func translateStoreError(err error, op string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %s", ErrTimeout, op)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
