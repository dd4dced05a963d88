package service

import (
	"context"
	"strings"
	"time"

	"langbuddy/internal/model"
	"langbuddy/internal/repository"
)

// UserDirectory is the external directory the discovery pipeline reads
// candidates from. The default implementation is the gorm-backed user
// repository; deployments with a separate account service can swap it.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	SearchUsers(ctx context.Context, keyword string, limit int) ([]model.User, error)
	RecommendUsers(ctx context.Context, viewerID string, limit int) ([]model.User, error)
}

// DiscoveryFilters narrow candidates by profile attributes. Each filter is
// a case-insensitive substring match; an empty filter matches everything.
type DiscoveryFilters struct {
	NativeLanguage   string `form:"native_language" validate:"omitempty,max=50"`
	LearningLanguage string `form:"learning_language" validate:"omitempty,max=50"`
	Location         string `form:"location" validate:"omitempty,max=100"`
}

// AnnotatedUser is a discovery candidate together with the viewer's
// relationship status against them.
type AnnotatedUser struct {
	User   model.User               `json:"user"`
	Status model.RelationshipStatus `json:"status"`
}

// DiscoveryService produces the annotated candidate list shown on the
// partner-finding screens. Each call is stateless and restartable; no
// cursor is held server-side.
type DiscoveryService interface {
	Discover(ctx context.Context, viewerID, query string, filters DiscoveryFilters) ([]*AnnotatedUser, error)
}

type discoveryService struct {
	directory        UserDirectory
	relationshipRepo repository.RelationshipRepository
	projector        ProjectionService
	candidateLimit   int
	storeTimeout     time.Duration
}

func NewDiscoveryService(
	directory UserDirectory,
	relationshipRepo repository.RelationshipRepository,
	projector ProjectionService,
	candidateLimit int,
	storeTimeout time.Duration,
) DiscoveryService {
	if candidateLimit <= 0 {
		candidateLimit = 50
	}
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &discoveryService{
		directory:        directory,
		relationshipRepo: relationshipRepo,
		projector:        projector,
		candidateLimit:   candidateLimit,
		storeTimeout:     storeTimeout,
	}
}

// Discover returns search matches when query is non-empty, otherwise a
// recommendation set. The viewer and their existing friends are excluded,
// filters are ANDed over profile attributes, and every survivor is
// annotated with its relationship status.
func (s *discoveryService) Discover(ctx context.Context, viewerID, query string, filters DiscoveryFilters) ([]*AnnotatedUser, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var candidates []model.User
	var err error
	if strings.TrimSpace(query) == "" {
		candidates, err = s.directory.RecommendUsers(fetchCtx, viewerID, s.candidateLimit)
	} else {
		candidates, err = s.directory.SearchUsers(fetchCtx, strings.TrimSpace(query), s.candidateLimit)
	}
	if err != nil {
		return nil, translateStoreError(err, "fetch candidates")
	}

	friendIDs, err := s.relationshipRepo.FriendIDs(fetchCtx, viewerID)
	if err != nil {
		return nil, translateStoreError(err, "friend exclusion")
	}
	friends := make(map[string]bool, len(friendIDs))
	for _, id := range friendIDs {
		friends[id] = true
	}

	filtered := make([]model.User, 0, len(candidates))
	for _, user := range candidates {
		if user.ID == viewerID || friends[user.ID] {
			continue
		}
		if !matchesFilters(user, filters) {
			continue
		}
		filtered = append(filtered, user)
	}

	candidateIDs := make([]string, 0, len(filtered))
	for _, user := range filtered {
		candidateIDs = append(candidateIDs, user.ID)
	}
	statuses := s.projector.ProjectStatuses(ctx, viewerID, candidateIDs)

	results := make([]*AnnotatedUser, 0, len(filtered))
	for _, user := range filtered {
		status, ok := statuses[user.ID]
		if !ok {
			status = model.StatusNone
		}
		results = append(results, &AnnotatedUser{
			User:   user,
			Status: status,
		})
	}

	return results, nil
}

func matchesFilters(user model.User, filters DiscoveryFilters) bool {
	return matchesAttribute(user.NativeLanguage, filters.NativeLanguage) &&
		matchesAttribute(user.LearningLanguage, filters.LearningLanguage) &&
		matchesAttribute(user.Location, filters.Location)
}

// matchesAttribute is a case-insensitive substring match; an empty filter
// matches all.
func matchesAttribute(value, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(filter))
}
