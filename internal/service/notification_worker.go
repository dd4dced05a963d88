package service

import (
	"encoding/json"
	"log"

	"langbuddy/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationWorker consumes queued notification messages from RabbitMQ
// and persists them, keeping the write off the request path.
type NotificationWorker struct {
	notifService NotificationService
	rabbitMQ     *util.RabbitMQClient
	stopChan     chan bool
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(notifService NotificationService, rabbitMQ *util.RabbitMQClient) *NotificationWorker {
	return &NotificationWorker{
		notifService: notifService,
		rabbitMQ:     rabbitMQ,
		stopChan:     make(chan bool),
	}
}

// Start begins consuming notification messages from RabbitMQ
func (w *NotificationWorker) Start() error {
	if w.rabbitMQ == nil {
		return nil // RabbitMQ not available, worker will not start
	}

	channel := w.rabbitMQ.GetChannel()
	if channel == nil {
		return nil
	}

	// Declare exchange
	if err := channel.ExchangeDeclare(
		NotificationExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return err
	}

	// Declare queue
	queue, err := channel.QueueDeclare(
		NotificationQueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	// Bind queue to exchange
	if err := channel.QueueBind(
		NotificationQueueName,
		NotificationRoutingKey,
		NotificationExchange,
		false,
		nil,
	); err != nil {
		return err
	}

	// Consume messages
	msgs, err := channel.Consume(
		queue.Name,
		"notification_worker",
		false, // auto-ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		log.Println("Notification worker started, consuming messages...")
		for {
			select {
			case <-w.stopChan:
				log.Println("Notification worker stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Println("Notification queue closed")
					return
				}
				if err := w.processMessage(msg); err != nil {
					log.Printf("Error processing notification message: %v", err)
					// Don't ack on error, let RabbitMQ requeue
					msg.Nack(false, true)
				} else {
					msg.Ack(false)
				}
			}
		}
	}()

	return nil
}

// Stop stops the worker
func (w *NotificationWorker) Stop() {
	close(w.stopChan)
}

func (w *NotificationWorker) processMessage(msg amqp.Delivery) error {
	var notifMsg NotificationMessage
	if err := json.Unmarshal(msg.Body, &notifMsg); err != nil {
		return err
	}

	return w.notifService.SaveFromMessage(&notifMsg)
}
