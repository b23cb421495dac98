package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/minimall/order-backend/internal/aws"
)

// Event types published on the order queue.
const (
	TypeOrderPaid      = "order.paid"
	TypeOrderCancelled = "order.cancelled"
)

// OrderEvent is the message sent to the order queue after a lifecycle
// transition. Publishing is best-effort; the transition itself is already
// durable when the event goes out.
type OrderEvent struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	UserID     int64     `json:"user_id"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher wraps an SQS client and a queue URL.
type Publisher struct {
	sqs      aws.SQSAPI
	queueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient aws.SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		sqs:      sqsClient,
		queueURL: queueURL,
	}
}

// Publish sends the event as a JSON message with the type and order id
// duplicated into message attributes for consumer-side filtering.
func (p *Publisher) Publish(ctx context.Context, evt OrderEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	bodyStr := string(body)
	_, err = p.sqs.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &bodyStr,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {
				DataType:    awsString("String"),
				StringValue: &evt.Type,
			},
			"order_id": {
				DataType:    awsString("String"),
				StringValue: &evt.OrderID,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
