package service

import (
	"context"
	"testing"
	"time"

	"langbuddy/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDiscovery(t *testing.T) (DiscoveryService, RelationshipService, *memoryStore) {
	t.Helper()

	store := newMemoryStore()
	directory := newMemoryDirectory(testUsers()...)
	engine := NewRelationshipService(store, directory, &fakeNotifier{}, time.Second)
	projector := NewProjectionService(store, time.Second)
	pipeline := NewDiscoveryService(directory, store, projector, 50, time.Second)
	return pipeline, engine, store
}

func resultIDs(results []*AnnotatedUser) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.User.ID)
	}
	return ids
}

func TestDiscoverRecommendationsExcludeViewer(t *testing.T) {
	pipeline, _, _ := newTestDiscovery(t)

	results, err := pipeline.Discover(context.Background(), alice, "", DiscoveryFilters{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{bruno, carla}, resultIDs(results))
}

func TestDiscoverExcludesExistingFriends(t *testing.T) {
	pipeline, _, store := newTestDiscovery(t)
	store.injectFriendship(alice, bruno)

	results, err := pipeline.Discover(context.Background(), alice, "", DiscoveryFilters{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{carla}, resultIDs(results))
}

func TestDiscoverSearchByKeyword(t *testing.T) {
	pipeline, _, _ := newTestDiscovery(t)

	results, err := pipeline.Discover(context.Background(), alice, "carla", DiscoveryFilters{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{carla}, resultIDs(results))
}

func TestDiscoverSearchExcludesViewerAndFriends(t *testing.T) {
	pipeline, _, store := newTestDiscovery(t)
	store.injectFriendship(alice, carla)

	// "a" matches every full name, but viewer and friends are dropped
	results, err := pipeline.Discover(context.Background(), alice, "a", DiscoveryFilters{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{bruno}, resultIDs(results))
}

func TestDiscoverFilterNativeLanguage(t *testing.T) {
	pipeline, _, _ := newTestDiscovery(t)

	results, err := pipeline.Discover(context.Background(), alice, "", DiscoveryFilters{NativeLanguage: "spanish"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{carla}, resultIDs(results))
}

func TestDiscoverFiltersAreConjunctive(t *testing.T) {
	pipeline, _, _ := newTestDiscovery(t)

	// Bruno is native Portuguese in Porto; Carla is native Spanish in Madrid
	results, err := pipeline.Discover(context.Background(), alice, "", DiscoveryFilters{
		NativeLanguage: "portuguese",
		Location:       "madrid",
	})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = pipeline.Discover(context.Background(), alice, "", DiscoveryFilters{
		NativeLanguage: "spanish",
		Location:       "madrid",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{carla}, resultIDs(results))
}

func TestDiscoverFilterIsSubstringMatch(t *testing.T) {
	pipeline, _, _ := newTestDiscovery(t)

	results, err := pipeline.Discover(context.Background(), alice, "", DiscoveryFilters{NativeLanguage: "SPAN"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{carla}, resultIDs(results))
}

func TestDiscoverAnnotatesStatuses(t *testing.T) {
	pipeline, engine, _ := newTestDiscovery(t)

	_, err := engine.SendRequest(context.Background(), alice, bruno)
	require.NoError(t, err)
	_, err = engine.SendRequest(context.Background(), carla, alice)
	require.NoError(t, err)

	results, err := pipeline.Discover(context.Background(), alice, "", DiscoveryFilters{})
	require.NoError(t, err)

	statuses := make(map[string]model.RelationshipStatus, len(results))
	for _, r := range results {
		statuses[r.User.ID] = r.Status
	}
	assert.Equal(t, model.StatusOutgoingPending, statuses[bruno])
	assert.Equal(t, model.StatusIncomingPending, statuses[carla])
}

func TestDiscoverIsRestartable(t *testing.T) {
	pipeline, engine, _ := newTestDiscovery(t)

	first, err := pipeline.Discover(context.Background(), alice, "", DiscoveryFilters{})
	require.NoError(t, err)

	// State changes between calls are reflected in the fresh snapshot
	_, err = engine.SendRequest(context.Background(), alice, bruno)
	require.NoError(t, err)

	second, err := pipeline.Discover(context.Background(), alice, "", DiscoveryFilters{})
	require.NoError(t, err)

	assert.ElementsMatch(t, resultIDs(first), resultIDs(second))
	for _, r := range second {
		if r.User.ID == bruno {
			assert.Equal(t, model.StatusOutgoingPending, r.Status)
		}
	}
}
