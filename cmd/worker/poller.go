package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"github.com/minimall/order-backend/internal/aws"
	"github.com/minimall/order-backend/internal/events"
)

const metricNamespace = "OrderBackend"

// metricNames maps an order event type to the CloudWatch metric it counts.
var metricNames = map[string]string{
	events.TypeOrderPaid:      "OrdersPaid",
	events.TypeOrderCancelled: "OrdersCancelled",
}

// Poller long-polls the order queue and turns each event into a CloudWatch
// metric count. Messages that fail to process stay on the queue for redelivery.
type Poller struct {
	sqsClient aws.SQSAPI
	cw        aws.CloudWatchAPI
	queueURL  string
	nowFunc   func() time.Time
}

func NewPoller(sqsClient aws.SQSAPI, cw aws.CloudWatchAPI, queueURL string) *Poller {
	return &Poller{
		sqsClient: sqsClient,
		cw:        cw,
		queueURL:  queueURL,
		nowFunc:   time.Now,
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	for {
		out, err := p.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            &p.queueURL,
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("receive failed; backing off")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, msg := range out.Messages {
			if err := p.process(ctx, sdkaws.ToString(msg.Body)); err != nil {
				log.Error().Err(err).Msg("failed to process message")
				continue
			}
			_, err := p.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      &p.queueURL,
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				log.Error().Err(err).Msg("failed to delete message")
			}
		}
	}
}

func (p *Poller) process(ctx context.Context, body string) error {
	var evt events.OrderEvent
	if err := json.Unmarshal([]byte(body), &evt); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	metric, ok := metricNames[evt.Type]
	if !ok {
		return fmt.Errorf("unknown event type %q", evt.Type)
	}

	_, err := p.cw.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(metricNamespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: sdkaws.String(metric),
				Value:      sdkaws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  sdkaws.Time(p.nowFunc()),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}

	log.Info().Str("order_id", evt.OrderID).Str("event_type", evt.Type).
		Int64("user_id", evt.UserID).Msg("recorded order event")
	return nil
}
