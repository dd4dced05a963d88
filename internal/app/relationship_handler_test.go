package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"langbuddy/internal/middleware"
	"langbuddy/internal/model"
	"langbuddy/internal/service"
	"langbuddy/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// stubRelationshipService returns a canned result or error for every call
type stubRelationshipService struct {
	request *model.FriendRequest
	err     error
}

func (s *stubRelationshipService) SendRequest(ctx context.Context, senderID, recipientID string) (*model.FriendRequest, error) {
	return s.request, s.err
}

func (s *stubRelationshipService) AcceptRequest(ctx context.Context, requestID, actorID string) (*model.FriendRequest, error) {
	return s.request, s.err
}

func (s *stubRelationshipService) DeclineRequest(ctx context.Context, requestID, actorID string) (*model.FriendRequest, error) {
	return s.request, s.err
}

func (s *stubRelationshipService) CancelRequest(ctx context.Context, requestID, actorID string) (*model.FriendRequest, error) {
	return s.request, s.err
}

func (s *stubRelationshipService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return s.err
}

func (s *stubRelationshipService) ListFriends(ctx context.Context, userID string) ([]*model.Friendship, error) {
	return nil, s.err
}

func (s *stubRelationshipService) ListIncomingRequests(ctx context.Context, userID string) ([]*model.FriendRequest, error) {
	return nil, s.err
}

func (s *stubRelationshipService) ListOutgoingRequests(ctx context.Context, userID string) ([]*model.FriendRequest, error) {
	return nil, s.err
}

func (s *stubRelationshipService) CountIncomingRequests(ctx context.Context, userID string) (int64, error) {
	return 0, s.err
}

func newTestRouter(svc service.RelationshipService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	handler := NewRelationshipHandler(svc)
	authed := r.Group("/api/v1")
	authed.Use(middleware.Auth(testSecret))
	authed.POST("/friends/requests", handler.SendRequest)
	authed.POST("/friends/requests/:id/accept", handler.AcceptRequest)
	authed.POST("/friends/requests/:id/cancel", handler.CancelRequest)
	authed.DELETE("/friends/:userID", handler.RemoveFriend)

	return r
}

func authHeader(t *testing.T, userID string) string {
	t.Helper()
	token, err := util.GenerateToken(userID, "user@example.com", testSecret, time.Minute)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestSendRequestRequiresAuth(t *testing.T) {
	router := newTestRouter(&stubRelationshipService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/requests", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSendRequestRejectsBadBody(t *testing.T) {
	router := newTestRouter(&stubRelationshipService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/requests", strings.NewReader(`{"recipient_id":"not-a-uuid"}`))
	req.Header.Set("Authorization", authHeader(t, "11111111-1111-1111-1111-111111111111"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendRequestSuccess(t *testing.T) {
	router := newTestRouter(&stubRelationshipService{
		request: &model.FriendRequest{ID: "req-1", Status: model.RequestStatusPending},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/requests",
		strings.NewReader(`{"recipient_id":"22222222-2222-2222-2222-222222222222"}`))
	req.Header.Set("Authorization", authHeader(t, "11111111-1111-1111-1111-111111111111"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "req-1")
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid operation", service.ErrInvalidOperation, http.StatusBadRequest},
		{"already friends", service.ErrAlreadyFriends, http.StatusConflict},
		{"request pending", service.ErrRequestAlreadyPending, http.StatusConflict},
		{"conflict", service.ErrConflict, http.StatusConflict},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"timeout", service.ErrTimeout, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubRelationshipService{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/requests/req-1/accept", nil)
			req.Header.Set("Authorization", authHeader(t, "22222222-2222-2222-2222-222222222222"))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRemoveFriendNotFoundStatus(t *testing.T) {
	router := newTestRouter(&stubRelationshipService{err: service.ErrNotFound})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/friends/22222222-2222-2222-2222-222222222222", nil)
	req.Header.Set("Authorization", authHeader(t, "11111111-1111-1111-1111-111111111111"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
