package app

import (
	"errors"
	"net/http"

	"langbuddy/internal/service"
	"langbuddy/internal/util"

	"github.com/gin-gonic/gin"
)

type RelationshipHandler struct {
	relationshipService service.RelationshipService
}

func NewRelationshipHandler(relationshipService service.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{
		relationshipService: relationshipService,
	}
}

// SendRequest handles sending a friend request
// POST /api/v1/friends/requests
func (h *RelationshipHandler) SendRequest(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	var req struct {
		RecipientID string `json:"recipient_id" binding:"required,uuid"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	request, err := h.relationshipService.SendRequest(c.Request.Context(), userID.(string), req.RecipientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Friend request sent successfully", gin.H{"request": request})
}

// AcceptRequest handles accepting a friend request
// POST /api/v1/friends/requests/:id/accept
func (h *RelationshipHandler) AcceptRequest(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	requestID := c.Param("id")
	if requestID == "" {
		util.BadRequest(c, "Request ID is required")
		return
	}

	request, err := h.relationshipService.AcceptRequest(c.Request.Context(), requestID, userID.(string))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend request accepted successfully", gin.H{"request": request})
}

// DeclineRequest handles declining a friend request
// POST /api/v1/friends/requests/:id/decline
func (h *RelationshipHandler) DeclineRequest(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	requestID := c.Param("id")
	if requestID == "" {
		util.BadRequest(c, "Request ID is required")
		return
	}

	request, err := h.relationshipService.DeclineRequest(c.Request.Context(), requestID, userID.(string))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend request declined successfully", gin.H{"request": request})
}

// CancelRequest handles withdrawing an outgoing friend request
// POST /api/v1/friends/requests/:id/cancel
func (h *RelationshipHandler) CancelRequest(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	requestID := c.Param("id")
	if requestID == "" {
		util.BadRequest(c, "Request ID is required")
		return
	}

	request, err := h.relationshipService.CancelRequest(c.Request.Context(), requestID, userID.(string))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend request cancelled successfully", gin.H{"request": request})
}

// RemoveFriend handles removing a friend
// DELETE /api/v1/friends/:userID
func (h *RelationshipHandler) RemoveFriend(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	friendID := c.Param("userID")
	if friendID == "" {
		util.BadRequest(c, "User ID is required")
		return
	}

	if err := h.relationshipService.RemoveFriend(c.Request.Context(), userID.(string), friendID); err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend removed successfully", nil)
}

// ListFriends handles listing the current user's friends
// GET /api/v1/friends
func (h *RelationshipHandler) ListFriends(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	friendships, err := h.relationshipService.ListFriends(c.Request.Context(), userID.(string))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friends retrieved successfully", gin.H{"friends": friendships})
}

// ListIncomingRequests handles listing pending requests sent to the user
// GET /api/v1/friends/requests/incoming
func (h *RelationshipHandler) ListIncomingRequests(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	requests, err := h.relationshipService.ListIncomingRequests(c.Request.Context(), userID.(string))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Incoming requests retrieved successfully", gin.H{"requests": requests})
}

// ListOutgoingRequests handles listing pending requests the user sent
// GET /api/v1/friends/requests/outgoing
func (h *RelationshipHandler) ListOutgoingRequests(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	requests, err := h.relationshipService.ListOutgoingRequests(c.Request.Context(), userID.(string))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Outgoing requests retrieved successfully", gin.H{"requests": requests})
}

// CountIncomingRequests handles the pending-request badge count
// GET /api/v1/friends/requests/incoming/count
func (h *RelationshipHandler) CountIncomingRequests(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	count, err := h.relationshipService.CountIncomingRequests(c.Request.Context(), userID.(string))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Pending request count retrieved successfully", gin.H{"count": count})
}

// respondServiceError maps the engine's typed errors to HTTP statuses so
// the caller can render precise messaging.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidOperation):
		util.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrAlreadyFriends),
		errors.Is(err, service.ErrRequestAlreadyPending),
		errors.Is(err, service.ErrConflict):
		util.ErrorResponse(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		util.NotFound(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		util.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrTimeout):
		util.ErrorResponse(c, http.StatusGatewayTimeout, err.Error(), nil)
	default:
		util.ErrorResponse(c, http.StatusInternalServerError, err.Error(), nil)
	}
}
