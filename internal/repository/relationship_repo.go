package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"langbuddy/internal/model"
	"langbuddy/internal/util"

	"gorm.io/gorm"
)

// ErrDuplicatePair is returned when an insert collides with the unique
// pair indexes (one pending request per pair, one friendship per pair).
var ErrDuplicatePair = errors.New("duplicate pair")

// RelationshipRepository is the single source of truth for friend requests
// and friendship edges. All pair lookups accept the two user IDs in either
// order; normalization happens on the pair key.
type RelationshipRepository interface {
	// Friend requests
	CreateRequest(ctx context.Context, request *model.FriendRequest) error
	FindRequestByID(ctx context.Context, id string) (*model.FriendRequest, error)
	PendingRequestBetween(ctx context.Context, userID1, userID2 string) (*model.FriendRequest, error)
	FindPendingByRecipientID(ctx context.Context, recipientID string) ([]*model.FriendRequest, error)
	FindPendingBySenderID(ctx context.Context, senderID string) ([]*model.FriendRequest, error)
	CountPendingByRecipientID(ctx context.Context, recipientID string) (int64, error)
	ResolveRequest(ctx context.Context, id, toStatus string, resolvedAt time.Time) error
	AcceptRequest(ctx context.Context, id string, resolvedAt time.Time) (*model.Friendship, error)

	// Friendship edges
	FriendshipBetween(ctx context.Context, userID1, userID2 string) (*model.Friendship, error)
	FindFriendshipsByUserID(ctx context.Context, userID string) ([]*model.Friendship, error)
	FriendIDs(ctx context.Context, userID string) ([]string, error)
	DeleteFriendshipBetween(ctx context.Context, userID1, userID2 string) error

	// Batched pair lookups for the status projector
	FriendshipsWith(ctx context.Context, viewerID string, otherIDs []string) ([]*model.Friendship, error)
	PendingRequestsWith(ctx context.Context, viewerID string, otherIDs []string) ([]*model.FriendRequest, error)
}

type relationshipRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	requestPendingCachePrefix = "relationship:pending:"
	requestCountCachePrefix   = "relationship:pending:count:"
	friendsCachePrefix        = "relationship:friends:"
	relationshipCacheTTL      = 15 * time.Minute
)

func NewRelationshipRepository(db *gorm.DB, redis *util.RedisClient) RelationshipRepository {
	return &relationshipRepository{
		db:    db,
		redis: redis,
	}
}

// CreateRequest inserts a new pending friend request. The partial unique
// index on (pair_key) WHERE status = 'pending' guarantees at most one
// outstanding request per pair even across concurrent processes.
func (r *relationshipRepository) CreateRequest(ctx context.Context, request *model.FriendRequest) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicatePair
		}
		return err
	}

	// Invalidate cache
	if r.redis != nil {
		r.invalidatePendingCache(request.SenderID)
		r.invalidatePendingCache(request.RecipientID)
		r.invalidateCountCache(request.RecipientID)
	}

	return nil
}

// FindRequestByID finds a friend request by ID
func (r *relationshipRepository) FindRequestByID(ctx context.Context, id string) (*model.FriendRequest, error) {
	var request model.FriendRequest
	err := r.db.WithContext(ctx).Preload("Sender").Preload("Recipient").
		Where("id = ?", id).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// PendingRequestBetween finds the outstanding request for a pair, in
// either direction.
func (r *relationshipRepository) PendingRequestBetween(ctx context.Context, userID1, userID2 string) (*model.FriendRequest, error) {
	var request model.FriendRequest
	err := r.db.WithContext(ctx).Preload("Sender").Preload("Recipient").
		Where("pair_key = ? AND status = ?", model.PairKey(userID1, userID2), model.RequestStatusPending).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// FindPendingByRecipientID finds incoming pending requests for a user
func (r *relationshipRepository) FindPendingByRecipientID(ctx context.Context, recipientID string) ([]*model.FriendRequest, error) {
	// Try cache first
	if r.redis != nil {
		cached, err := r.getRequestListFromCache(requestPendingCachePrefix + "in:" + recipientID)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	var requests []*model.FriendRequest
	err := r.db.WithContext(ctx).Preload("Sender").Preload("Recipient").
		Where("recipient_id = ? AND status = ?", recipientID, model.RequestStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}

	// Cache the result
	if r.redis != nil {
		r.cacheRequestList(requestPendingCachePrefix+"in:"+recipientID, requests)
	}

	return requests, nil
}

// FindPendingBySenderID finds outgoing pending requests for a user
func (r *relationshipRepository) FindPendingBySenderID(ctx context.Context, senderID string) ([]*model.FriendRequest, error) {
	// Try cache first
	if r.redis != nil {
		cached, err := r.getRequestListFromCache(requestPendingCachePrefix + "out:" + senderID)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	var requests []*model.FriendRequest
	err := r.db.WithContext(ctx).Preload("Sender").Preload("Recipient").
		Where("sender_id = ? AND status = ?", senderID, model.RequestStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}

	// Cache the result
	if r.redis != nil {
		r.cacheRequestList(requestPendingCachePrefix+"out:"+senderID, requests)
	}

	return requests, nil
}

// CountPendingByRecipientID counts incoming pending requests for a user
func (r *relationshipRepository) CountPendingByRecipientID(ctx context.Context, recipientID string) (int64, error) {
	// Try cache first
	if r.redis != nil {
		cached, err := r.redis.Get(requestCountCachePrefix + recipientID)
		if err == nil {
			var count int64
			if _, err := fmt.Sscanf(cached, "%d", &count); err == nil {
				return count, nil
			}
		}
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.FriendRequest{}).
		Where("recipient_id = ? AND status = ?", recipientID, model.RequestStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	// Cache the count
	if r.redis != nil {
		r.redis.Set(requestCountCachePrefix+recipientID, fmt.Sprintf("%d", count), relationshipCacheTTL)
	}

	return count, nil
}

// ResolveRequest moves a pending request to a terminal status as a
// compare-and-set: the update only applies while the row is still pending.
// gorm.ErrRecordNotFound is returned when the request was already resolved
// or never existed; the caller decides which of the two it was.
func (r *relationshipRepository) ResolveRequest(ctx context.Context, id, toStatus string, resolvedAt time.Time) error {
	var request model.FriendRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&model.FriendRequest{}).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":      toStatus,
			"resolved_at": resolvedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	// Invalidate cache
	if r.redis != nil {
		r.invalidatePendingCache(request.SenderID)
		r.invalidatePendingCache(request.RecipientID)
		r.invalidateCountCache(request.RecipientID)
	}

	return nil
}

// AcceptRequest flips a pending request to accepted and creates the
// friendship edge in a single transaction, so a reader can never observe
// one without the other.
func (r *relationshipRepository) AcceptRequest(ctx context.Context, id string, resolvedAt time.Time) (*model.Friendship, error) {
	var friendship *model.Friendship
	var request model.FriendRequest

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&request).Error; err != nil {
			return err
		}

		result := tx.Model(&model.FriendRequest{}).
			Where("id = ? AND status = ?", id, model.RequestStatusPending).
			Updates(map[string]interface{}{
				"status":      model.RequestStatusAccepted,
				"resolved_at": resolvedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		friendship = &model.Friendship{
			UserAID: request.SenderID,
			UserBID: request.RecipientID,
		}
		if err := tx.Create(friendship).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicatePair
			}
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Invalidate cache
	if r.redis != nil {
		r.invalidatePendingCache(request.SenderID)
		r.invalidatePendingCache(request.RecipientID)
		r.invalidateCountCache(request.RecipientID)
		r.invalidateFriendsCache(request.SenderID)
		r.invalidateFriendsCache(request.RecipientID)
	}

	return friendship, nil
}

// FriendshipBetween finds the friendship edge for a pair, if any
func (r *relationshipRepository) FriendshipBetween(ctx context.Context, userID1, userID2 string) (*model.Friendship, error) {
	var friendship model.Friendship
	err := r.db.WithContext(ctx).
		Where("pair_key = ?", model.PairKey(userID1, userID2)).
		First(&friendship).Error
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

// FindFriendshipsByUserID finds all friendship edges touching a user
func (r *relationshipRepository) FindFriendshipsByUserID(ctx context.Context, userID string) ([]*model.Friendship, error) {
	// Try cache first
	if r.redis != nil {
		cached, err := r.getFriendshipListFromCache(friendsCachePrefix + userID)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	var friendships []*model.Friendship
	err := r.db.WithContext(ctx).Preload("UserA").Preload("UserB").
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}

	// Cache the result
	if r.redis != nil {
		r.cacheFriendshipList(friendsCachePrefix+userID, friendships)
	}

	return friendships, nil
}

// FriendIDs returns the IDs of every user the given user is friends with
func (r *relationshipRepository) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	friendships, err := r.FindFriendshipsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(friendships))
	for _, f := range friendships {
		ids = append(ids, f.OtherUserID(userID))
	}
	return ids, nil
}

// DeleteFriendshipBetween deletes the friendship edge for a pair
func (r *relationshipRepository) DeleteFriendshipBetween(ctx context.Context, userID1, userID2 string) error {
	result := r.db.WithContext(ctx).
		Where("pair_key = ?", model.PairKey(userID1, userID2)).
		Delete(&model.Friendship{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	// Invalidate cache
	if r.redis != nil {
		r.invalidateFriendsCache(userID1)
		r.invalidateFriendsCache(userID2)
	}

	return nil
}

// FriendshipsWith returns the friendship edges between the viewer and any
// of the given users in one query.
func (r *relationshipRepository) FriendshipsWith(ctx context.Context, viewerID string, otherIDs []string) ([]*model.Friendship, error) {
	if len(otherIDs) == 0 {
		return nil, nil
	}

	var friendships []*model.Friendship
	err := r.db.WithContext(ctx).
		Where("pair_key IN ?", pairKeys(viewerID, otherIDs)).
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

// PendingRequestsWith returns the outstanding requests between the viewer
// and any of the given users in one query, whichever side sent them.
func (r *relationshipRepository) PendingRequestsWith(ctx context.Context, viewerID string, otherIDs []string) ([]*model.FriendRequest, error) {
	if len(otherIDs) == 0 {
		return nil, nil
	}

	var requests []*model.FriendRequest
	err := r.db.WithContext(ctx).
		Where("pair_key IN ? AND status = ?", pairKeys(viewerID, otherIDs), model.RequestStatusPending).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func pairKeys(viewerID string, otherIDs []string) []string {
	keys := make([]string, 0, len(otherIDs))
	for _, id := range otherIDs {
		keys = append(keys, model.PairKey(viewerID, id))
	}
	return keys
}

// isDuplicateKey reports whether err is a Postgres unique constraint violation
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value")
}

// Cache helpers
func (r *relationshipRepository) cacheRequestList(key string, requests []*model.FriendRequest) {
	if r.redis == nil {
		return
	}

	requestsJSON, err := json.Marshal(requests)
	if err != nil {
		return
	}

	r.redis.Set(key, string(requestsJSON), relationshipCacheTTL)
}

func (r *relationshipRepository) getRequestListFromCache(key string) ([]*model.FriendRequest, error) {
	if r.redis == nil {
		return nil, fmt.Errorf("redis not available")
	}

	cached, err := r.redis.Get(key)
	if err != nil {
		return nil, err
	}

	var requests []*model.FriendRequest
	if err := json.Unmarshal([]byte(cached), &requests); err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *relationshipRepository) cacheFriendshipList(key string, friendships []*model.Friendship) {
	if r.redis == nil {
		return
	}

	friendshipsJSON, err := json.Marshal(friendships)
	if err != nil {
		return
	}

	r.redis.Set(key, string(friendshipsJSON), relationshipCacheTTL)
}

func (r *relationshipRepository) getFriendshipListFromCache(key string) ([]*model.Friendship, error) {
	if r.redis == nil {
		return nil, fmt.Errorf("redis not available")
	}

	cached, err := r.redis.Get(key)
	if err != nil {
		return nil, err
	}

	var friendships []*model.Friendship
	if err := json.Unmarshal([]byte(cached), &friendships); err != nil {
		return nil, err
	}

	return friendships, nil
}

func (r *relationshipRepository) invalidatePendingCache(userID string) {
	if r.redis == nil {
		return
	}
	r.redis.Delete(requestPendingCachePrefix + "in:" + userID)
	r.redis.Delete(requestPendingCachePrefix + "out:" + userID)
}

func (r *relationshipRepository) invalidateCountCache(userID string) {
	if r.redis == nil {
		return
	}
	r.redis.Delete(requestCountCachePrefix + userID)
}

func (r *relationshipRepository) invalidateFriendsCache(userID string) {
	if r.redis == nil {
		return
	}
	r.redis.Delete(friendsCachePrefix + userID)
}
