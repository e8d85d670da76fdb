package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CompanyRepository は企業ドキュメントの Mongo 実装。
type CompanyRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewCompanyRepository(db *mongo.Database, collectionName string) *CompanyRepository {
	return &CompanyRepository{
		collection: db.Collection(collectionName),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var _ application.CompanyRepository = (*CompanyRepository)(nil)

func (r *CompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	_, err := r.collection.InsertOne(ctx, CompanyDocument{
		ID:                 company.ID,
		Name:               company.Name,
		AdminID:            company.AdminID,
		OverallReportDraft: company.OverallReportDraft,
		FinalReportReady:   company.FinalReportReady,
		CreatedAt:          company.CreatedAt,
		UpdatedAt:          company.UpdatedAt,
	})
	return err
}

func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*domain.Company, error) {
	var doc CompanyDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("企業が見つかりません")
		}
		return nil, err
	}
	company := mapCompany(doc)
	return &company, nil
}

func (r *CompanyRepository) ListByAdmin(ctx context.Context, adminID string) ([]domain.Company, error) {
	return r.find(ctx, bson.M{"adminId": adminID})
}

func (r *CompanyRepository) List(ctx context.Context) ([]domain.Company, error) {
	return r.find(ctx, bson.M{})
}

func (r *CompanyRepository) find(ctx context.Context, filter bson.M) ([]domain.Company, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	companies := make([]domain.Company, 0)
	for cursor.Next(ctx) {
		var doc CompanyDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		companies = append(companies, mapCompany(doc))
	}
	return companies, cursor.Err()
}

// SetOverallReportDraft overwrites the consolidated draft and withdraws any previous approval.
// Without replaceApproved a published report is kept and written is false.
func (r *CompanyRepository) SetOverallReportDraft(ctx context.Context, id, draft string, replaceApproved bool) (bool, error) {
	filter := bson.M{"_id": id}
	if !replaceApproved {
		filter["finalReportReady"] = bson.M{"$ne": true}
	}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"overallReportDraft": draft,
		"finalReportReady":   false,
		"updatedAt":          r.now(),
	}})
	if err != nil {
		return false, err
	}
	if result.MatchedCount == 1 {
		return true, nil
	}
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, domain.NewNotFoundError("企業が見つかりません")
	}
	return false, nil
}

func (r *CompanyRepository) UpdateOverallReportDraft(ctx context.Context, id, draft string) error {
	return r.update(ctx, id, bson.M{
		"overallReportDraft": draft,
		"updatedAt":          r.now(),
	})
}

func (r *CompanyRepository) ApproveOverallReport(ctx context.Context, id, finalText string) error {
	return r.update(ctx, id, bson.M{
		"overallReportDraft": finalText,
		"finalReportReady":   true,
		"updatedAt":          r.now(),
	})
}

func (r *CompanyRepository) update(ctx context.Context, id string, set bson.M) error {
	result, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.NewNotFoundError("企業が見つかりません")
	}
	return nil
}
