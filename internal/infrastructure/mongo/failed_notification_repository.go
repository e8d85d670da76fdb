package mongo

import (
	"context"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// FailedNotificationRepository は送信できなかった通知を後から再送できるよう保存する。
type FailedNotificationRepository struct {
	collection *mongo.Collection
}

func NewFailedNotificationRepository(db *mongo.Database, collectionName string) *FailedNotificationRepository {
	return &FailedNotificationRepository{collection: db.Collection(collectionName)}
}

func (r *FailedNotificationRepository) Record(ctx context.Context, failure application.NotificationFailure) error {
	now := time.Now().UTC()
	errText := ""
	if failure.Err != nil {
		errText = failure.Err.Error()
	}
	_, err := r.collection.InsertOne(ctx, bson.M{
		"target":      failure.Target,
		"payload":     failure.Payload,
		"error":       errText,
		"attempts":    failure.Attempts,
		"status":      "pending",
		"createdAt":   now,
		"lastTriedAt": now,
	})
	return err
}
