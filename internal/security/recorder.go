package security

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voting-service/internal/bucketing"
	"voting-service/internal/client"
	"voting-service/internal/models"
	"voting-service/internal/util"
)

// Recorder appends security events to the audit trail.
type Recorder interface {
	Record(ctx context.Context, eventType models.EventType, severity models.Severity,
		userID uuid.UUID, meta models.RequestMeta, details models.EventDetails)
}

// EventRecorder writes every event durably to ClickHouse, then fans it out
// to Kafka and Elasticsearch on a best-effort basis. Fan-out failures are
// logged and dropped; the ClickHouse row is the record of truth.
type EventRecorder struct {
	clickhouse *client.ClickHouseClient
	producer   *client.KafkaProducer
	es         *client.ESClient
	buckets    *bucketing.BucketingManager
}

func NewEventRecorder(ch *client.ClickHouseClient, producer *client.KafkaProducer,
	es *client.ESClient, buckets *bucketing.BucketingManager) *EventRecorder {
	return &EventRecorder{
		clickhouse: ch,
		producer:   producer,
		es:         es,
		buckets:    buckets,
	}
}

const insertEventQuery = `
	INSERT INTO security_events (
		event_date, event_bucket, event_id, event_type, severity,
		user_id, ip_address, user_agent, details, timestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (r *EventRecorder) Record(ctx context.Context, eventType models.EventType, severity models.Severity,
	userID uuid.UUID, meta models.RequestMeta, details models.EventDetails) {

	now := time.Now().UTC()
	event := &models.SecurityEvent{
		EventBucket: r.buckets.GetEventBucket(userID.String()),
		EventID:     uuid.New(),
		Type:        eventType,
		Severity:    severity,
		UserID:      userID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Details:     details,
		Timestamp:   now,
	}

	detailsJSON := event.DetailsJSON()

	err := r.clickhouse.Exec(ctx, insertEventQuery,
		r.buckets.GetDateBucket(now), event.EventBucket, event.EventID.String(),
		string(event.Type), string(event.Severity),
		event.UserID.String(), event.IPAddress, event.UserAgent,
		detailsJSON, event.Timestamp)
	if err != nil {
		util.Error("Failed to persist security event",
			zap.String("event_type", string(eventType)),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	go r.fanOut(event)

	util.Debug("Security event recorded",
		zap.String("event_type", string(eventType)),
		zap.String("severity", string(severity)),
		zap.String("user_id", userID.String()))
}

func (r *EventRecorder) fanOut(event *models.SecurityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload := event.Marshal()

	if r.producer != nil {
		if err := r.producer.Publish(ctx, []byte(event.UserID.String()), payload, nil); err != nil {
			util.Warn("Failed to publish security event to Kafka",
				zap.String("event_id", event.EventID.String()),
				zap.Error(err))
		}
	}

	if r.es != nil {
		if err := r.es.IndexEvent(ctx, event.EventID.String(), payload); err != nil {
			util.Warn("Failed to index security event",
				zap.String("event_id", event.EventID.String()),
				zap.Error(err))
		}
	}
}
