package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AreaRepository は application.AreaRepository の Mongo 実装。
// ステータスを伴う書き込みはすべて現在のステータスを条件にした単一の更新で行う。
type AreaRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewAreaRepository(db *mongo.Database, collectionName string) *AreaRepository {
	return &AreaRepository{
		collection: db.Collection(collectionName),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var _ application.AreaRepository = (*AreaRepository)(nil)

func (r *AreaRepository) FindByID(ctx context.Context, id string) (*domain.Area, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AreaRepository) FindByFormID(ctx context.Context, formID string) (*domain.Area, error) {
	return r.findOne(ctx, bson.M{"formId": formID})
}

func (r *AreaRepository) findOne(ctx context.Context, filter bson.M) (*domain.Area, error) {
	var doc AreaDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("領域が見つかりません")
		}
		return nil, err
	}
	area, err := mapArea(doc)
	if err != nil {
		return nil, err
	}
	return &area, nil
}

// ListByCompany returns the areas of a company ordered by creation time.
func (r *AreaRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.Area, error) {
	return r.list(ctx, bson.M{"companyId": companyID})
}

// ListByStatus returns every area currently in status ordered by creation time.
func (r *AreaRepository) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Area, error) {
	return r.list(ctx, bson.M{"status": string(status)})
}

func (r *AreaRepository) list(ctx context.Context, filter bson.M) ([]domain.Area, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	areas := make([]domain.Area, 0)
	for cursor.Next(ctx) {
		var doc AreaDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		area, err := mapArea(doc)
		if err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return areas, nil
}

// CreateMany inserts a batch in one ordered InsertMany.
func (r *AreaRepository) CreateMany(ctx context.Context, areas []*domain.Area) error {
	if len(areas) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(areas))
	for _, area := range areas {
		docs = append(docs, buildAreaDocument(area))
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}

// SaveSnapshot replaces formData and status in one update conditioned on the stored status.
// When nothing matches it tells a missing area apart from a refused transition.
func (r *AreaRepository) SaveSnapshot(ctx context.Context, snapshot application.AreaSnapshot) (*domain.Area, error) {
	set := bson.D{
		{Key: "formData", Value: encodeFormData(snapshot.FormData)},
		{Key: "status", Value: string(snapshot.Status)},
		{Key: "updatedAt", Value: r.now()},
	}
	if snapshot.CompletedAt != nil {
		set = append(set, bson.E{Key: "completedAt", Value: *snapshot.CompletedAt})
	}
	filter := bson.M{"_id": snapshot.AreaID, "status": bson.M{"$in": statusStrings(snapshot.AllowedFrom)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var doc AreaDocument
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.explainMiss(ctx, snapshot.AreaID, snapshot.Status)
		}
		return nil, err
	}
	before, err := mapArea(doc)
	if err != nil {
		return nil, err
	}
	return &before, nil
}

// CompleteReport stores the generated draft and moves the area to report_ready.
func (r *AreaRepository) CompleteReport(ctx context.Context, id, draft string, from []domain.Status) error {
	filter := bson.M{"_id": id, "status": bson.M{"$in": statusStrings(from)}}
	update := bson.M{
		"$set": bson.M{
			"status":      string(domain.StatusReportReady),
			"reportDraft": draft,
			"updatedAt":   r.now(),
		},
		"$unset": bson.M{"generationError": ""},
	}
	return r.conditionalUpdate(ctx, filter, update, id, domain.StatusReportReady)
}

// MarkGenerationFailed records reason and moves the area to error.
func (r *AreaRepository) MarkGenerationFailed(ctx context.Context, id, reason string) error {
	filter := bson.M{"_id": id, "status": bson.M{"$in": statusStrings([]domain.Status{domain.StatusCompleted, domain.StatusError})}}
	update := bson.M{"$set": bson.M{
		"status":          string(domain.StatusError),
		"generationError": reason,
		"updatedAt":       r.now(),
	}}
	return r.conditionalUpdate(ctx, filter, update, id, domain.StatusError)
}

func (r *AreaRepository) MarkNotificationSent(ctx context.Context, id string) error {
	result, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{"notificationSent": true}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.NewNotFoundError("領域が見つかりません")
	}
	return nil
}

func (r *AreaRepository) AppendAttachment(ctx context.Context, id string, attachment domain.Attachment) error {
	doc := AttachmentDocument{
		ID:          attachment.ID,
		Name:        attachment.Name,
		URL:         attachment.URL,
		ContentType: attachment.ContentType,
		Size:        attachment.Size,
		UploadedAt:  attachment.UploadedAt,
	}
	update := bson.M{
		"$push": bson.M{"attachments": doc},
		"$set":  bson.M{"updatedAt": r.now()},
	}
	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.NewNotFoundError("領域が見つかりません")
	}
	return nil
}

func (r *AreaRepository) conditionalUpdate(ctx context.Context, filter bson.M, update bson.M, id string, to domain.Status) error {
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return r.explainMiss(ctx, id, to)
	}
	return nil
}

func (r *AreaRepository) explainMiss(ctx context.Context, id string, to domain.Status) error {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return domain.NewInvalidTransitionError(current.Status, to)
}

func statusStrings(statuses []domain.Status) bson.A {
	out := bson.A{}
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

// decodeAreaDocument is shared with the change stream watcher.
func decodeAreaDocument(raw bson.Raw) (domain.Area, error) {
	var doc AreaDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return domain.Area{}, fmt.Errorf("領域ドキュメントの解析に失敗: %w", err)
	}
	return mapArea(doc)
}
