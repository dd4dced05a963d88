package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"langbuddy/internal/model"
	"langbuddy/internal/repository"
	"langbuddy/internal/util"
)

// NotificationService records relationship events for the pull-based
// notification feed. When RabbitMQ is available, events are enqueued and
// persisted off the request path by the notification worker; otherwise
// they are written straight to the database.
type NotificationService interface {
	SendFriendRequestNotification(recipientID, senderID, senderName, requestID string) error
	SendRequestAcceptedNotification(recipientID, senderID, senderName, requestID string) error
	SendRequestDeclinedNotification(recipientID, senderID, senderName, requestID string) error
	SendFriendRemovedNotification(recipientID, senderID, senderName string) error

	GetNotificationsByUserID(userID string, limit, offset int) ([]*model.Notification, error)
	GetUnreadNotifications(userID string) ([]*model.Notification, error)
	GetUnreadCount(userID string) (int64, error)
	MarkAsRead(notificationID, userID string) error
	MarkAllAsRead(userID string) error
	DeleteNotification(notificationID, userID string) error

	SaveFromMessage(msg *NotificationMessage) error
}

type notificationService struct {
	notifRepo repository.NotificationRepository
	rabbitMQ  *util.RabbitMQClient
}

// NotificationMessage is the queue payload for async notification writes
type NotificationMessage struct {
	UserID    string                 `json:"user_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

const (
	NotificationQueueName  = "notification_queue"
	NotificationExchange   = "notification_exchange"
	NotificationRoutingKey = "notification"
)

func NewNotificationService(notifRepo repository.NotificationRepository, rabbitMQ *util.RabbitMQClient) NotificationService {
	return &notificationService{
		notifRepo: notifRepo,
		rabbitMQ:  rabbitMQ,
	}
}

// sendNotification enqueues the event to RabbitMQ, falling back to a
// direct database write when the broker is unavailable.
func (s *notificationService) sendNotification(
	userID, notifType, title, message string,
	data map[string]interface{},
) error {
	msg := &NotificationMessage{
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}

	if s.rabbitMQ != nil {
		msgJSON, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal notification message: %w", err)
		}

		if err := s.rabbitMQ.Publish(NotificationExchange, NotificationRoutingKey, msgJSON); err == nil {
			return nil
		} else {
			log.Printf("Failed to publish notification to RabbitMQ, writing directly: %v", err)
		}
	}

	return s.SaveFromMessage(msg)
}

// SaveFromMessage persists a queued notification message. Used by the
// notification worker and as the direct-write fallback.
func (s *notificationService) SaveFromMessage(msg *NotificationMessage) error {
	notification := &model.Notification{
		UserID:  msg.UserID,
		Type:    msg.Type,
		Title:   msg.Title,
		Message: msg.Message,
		IsRead:  false,
	}

	if msg.Data != nil {
		if senderID, ok := msg.Data["sender_id"].(string); ok {
			notification.SenderID = &senderID
		}
		if targetID, ok := msg.Data["request_id"].(string); ok {
			notification.TargetID = &targetID
		}

		dataJSON, err := json.Marshal(msg.Data)
		if err == nil {
			notification.Data = string(dataJSON)
		}
	}

	if err := s.notifRepo.Create(notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// SendFriendRequestNotification records a new friend request event
func (s *notificationService) SendFriendRequestNotification(
	recipientID, senderID, senderName, requestID string,
) error {
	title := "New Friend Request"
	message := fmt.Sprintf("%s sent you a friend request", senderName)
	data := map[string]interface{}{
		"request_id":  requestID,
		"sender_id":   senderID,
		"sender_name": senderName,
	}

	return s.sendNotification(
		recipientID,
		model.NotificationTypeFriendRequest,
		title,
		message,
		data,
	)
}

// SendRequestAcceptedNotification records a request accepted event
func (s *notificationService) SendRequestAcceptedNotification(
	recipientID, senderID, senderName, requestID string,
) error {
	title := "Friend Request Accepted"
	message := fmt.Sprintf("%s accepted your friend request", senderName)
	data := map[string]interface{}{
		"request_id":  requestID,
		"sender_id":   senderID,
		"sender_name": senderName,
	}

	return s.sendNotification(
		recipientID,
		model.NotificationTypeRequestAccepted,
		title,
		message,
		data,
	)
}

// SendRequestDeclinedNotification records a request declined event
func (s *notificationService) SendRequestDeclinedNotification(
	recipientID, senderID, senderName, requestID string,
) error {
	title := "Friend Request Declined"
	message := fmt.Sprintf("%s declined your friend request", senderName)
	data := map[string]interface{}{
		"request_id":  requestID,
		"sender_id":   senderID,
		"sender_name": senderName,
	}

	return s.sendNotification(
		recipientID,
		model.NotificationTypeRequestDeclined,
		title,
		message,
		data,
	)
}

// SendFriendRemovedNotification records a friend removal event
func (s *notificationService) SendFriendRemovedNotification(
	recipientID, senderID, senderName string,
) error {
	title := "Friend Removed"
	message := fmt.Sprintf("%s removed you from their friends list", senderName)
	data := map[string]interface{}{
		"sender_id":   senderID,
		"sender_name": senderName,
	}

	return s.sendNotification(
		recipientID,
		model.NotificationTypeFriendRemoved,
		title,
		message,
		data,
	)
}

// GetNotificationsByUserID gets notifications for a user with pagination
func (s *notificationService) GetNotificationsByUserID(userID string, limit, offset int) ([]*model.Notification, error) {
	return s.notifRepo.FindByUserID(userID, limit, offset)
}

// GetUnreadNotifications gets unread notifications for a user
func (s *notificationService) GetUnreadNotifications(userID string) ([]*model.Notification, error) {
	return s.notifRepo.FindUnreadByUserID(userID)
}

// GetUnreadCount gets unread notification count for a user
func (s *notificationService) GetUnreadCount(userID string) (int64, error) {
	return s.notifRepo.CountUnreadByUserID(userID)
}

// MarkAsRead marks a notification as read after an ownership check
func (s *notificationService) MarkAsRead(notificationID, userID string) error {
	notification, err := s.notifRepo.FindByID(notificationID)
	if err != nil {
		return ErrNotFound
	}
	if notification.UserID != userID {
		return ErrForbidden
	}
	return s.notifRepo.MarkAsRead(notificationID)
}

// MarkAllAsRead marks all notifications for a user as read
func (s *notificationService) MarkAllAsRead(userID string) error {
	return s.notifRepo.MarkAllAsRead(userID)
}

// DeleteNotification deletes a notification after an ownership check
func (s *notificationService) DeleteNotification(notificationID, userID string) error {
	notification, err := s.notifRepo.FindByID(notificationID)
	if err != nil {
		return ErrNotFound
	}
	if notification.UserID != userID {
		return ErrForbidden
	}
	return s.notifRepo.Delete(notificationID)
}
