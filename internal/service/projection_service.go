package service

import (
	"context"
	"log"
	"time"

	"langbuddy/internal/model"
	"langbuddy/internal/repository"
)

// ProjectionService derives the client-visible relationship status of a
// viewer against a set of candidates. The projection is pure: it is
// recomputed from the store on every call and never cached here, so it
// cannot go stale against the engine's writes for longer than one read.
type ProjectionService interface {
	ProjectStatuses(ctx context.Context, viewerID string, candidateIDs []string) map[string]model.RelationshipStatus
}

type projectionService struct {
	relationshipRepo repository.RelationshipRepository
	storeTimeout     time.Duration
}

func NewProjectionService(relationshipRepo repository.RelationshipRepository, storeTimeout time.Duration) ProjectionService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &projectionService{
		relationshipRepo: relationshipRepo,
		storeTimeout:     storeTimeout,
	}
}

// ProjectStatuses computes the status of each candidate pair from two
// batched lookups (friendship edges, then pending requests). Lookup
// failures degrade the affected candidates to "none" with a logged
// warning instead of failing the whole batch.
func (s *projectionService) ProjectStatuses(ctx context.Context, viewerID string, candidateIDs []string) map[string]model.RelationshipStatus {
	statuses := make(map[string]model.RelationshipStatus, len(candidateIDs))
	for _, id := range candidateIDs {
		statuses[id] = model.StatusNone
	}
	if len(candidateIDs) == 0 {
		return statuses
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	friends := make(map[string]bool, len(candidateIDs))
	friendships, err := s.relationshipRepo.FriendshipsWith(ctx, viewerID, candidateIDs)
	if err != nil {
		log.Printf("Warning: friendship projection failed for viewer %s: %v", viewerID, err)
	} else {
		for _, f := range friendships {
			other := f.OtherUserID(viewerID)
			friends[other] = true
			statuses[other] = model.StatusFriends
		}
	}

	requests, err := s.relationshipRepo.PendingRequestsWith(ctx, viewerID, candidateIDs)
	if err != nil {
		log.Printf("Warning: pending request projection failed for viewer %s: %v", viewerID, err)
		return statuses
	}

	for _, req := range requests {
		var other string
		var status model.RelationshipStatus
		if req.SenderID == viewerID {
			other = req.RecipientID
			status = model.StatusOutgoingPending
		} else {
			other = req.SenderID
			status = model.StatusIncomingPending
		}

		// A friendship and a pending request should never coexist for a
		// pair; if they do, the friendship wins and the row is flagged.
		if friends[other] {
			log.Printf("Warning: data integrity: pair %s has both a friendship and pending request %s", req.PairKey, req.ID)
			continue
		}
		if _, known := statuses[other]; !known {
			continue
		}
		statuses[other] = status
	}

	return statuses
}
