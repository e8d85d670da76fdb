package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
)

const (
	claimRunning = "running"
	claimDone    = "done"
)

// ClaimLedger はパイプラインが処理したイベントキーを記録する。_id の一意性で重複配送を弾き、
// running のまま古くなったクレームだけは引き継げる。
type ClaimLedger struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewClaimLedger(db *mongo.Database, collectionName string) *ClaimLedger {
	return &ClaimLedger{
		collection: db.Collection(collectionName),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var _ application.ClaimLedger = (*ClaimLedger)(nil)

// Claim takes over a running claim older than staleAfter, or inserts key.
// It returns false when a live or completed claim exists.
func (l *ClaimLedger) Claim(ctx context.Context, key string, staleAfter time.Duration) (bool, error) {
	now := l.now()
	takeover, err := l.collection.UpdateOne(ctx,
		bson.M{"_id": key, "state": claimRunning, "claimedAt": bson.M{"$lt": now.Add(-staleAfter)}},
		bson.M{"$set": bson.M{"claimedAt": now}, "$inc": bson.M{"attempts": 1}},
	)
	if err != nil {
		return false, err
	}
	if takeover.MatchedCount == 1 {
		return true, nil
	}

	_, err = l.collection.InsertOne(ctx, bson.M{
		"_id":       key,
		"state":     claimRunning,
		"attempts":  1,
		"createdAt": now,
		"claimedAt": now,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Complete marks key as done so it is never taken over.
func (l *ClaimLedger) Complete(ctx context.Context, key string) error {
	_, err := l.collection.UpdateByID(ctx, key, bson.M{"$set": bson.M{"state": claimDone, "completedAt": l.now()}})
	return err
}

// Release deletes key so the event can be processed again.
func (l *ClaimLedger) Release(ctx context.Context, key string) error {
	_, err := l.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}
