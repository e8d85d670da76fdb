package mongo

import (
	"context"
	"errors"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CatalogRepository はシード済みのテンプレート・モジュール・プロンプトを読み出す。
type CatalogRepository struct {
	templates *mongo.Collection
	modules   *mongo.Collection
	prompts   *mongo.Collection
}

// CatalogCollections names the three catalog collections.
type CatalogCollections struct {
	Templates string
	Modules   string
	Prompts   string
}

func NewCatalogRepository(db *mongo.Database, names CatalogCollections) *CatalogRepository {
	return &CatalogRepository{
		templates: db.Collection(names.Templates),
		modules:   db.Collection(names.Modules),
		prompts:   db.Collection(names.Prompts),
	}
}

var _ application.CatalogRepository = (*CatalogRepository)(nil)

func (r *CatalogRepository) FindTemplate(ctx context.Context, id string) (*domain.Template, error) {
	var doc TemplateDocument
	if err := r.templates.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "テンプレートが見つかりません")
	}
	template := mapTemplate(doc)
	return &template, nil
}

func (r *CatalogRepository) FindModule(ctx context.Context, id string) (*domain.Module, error) {
	var doc ModuleDocument
	if err := r.modules.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "モジュールが見つかりません")
	}
	module := mapModule(doc)
	return &module, nil
}

func (r *CatalogRepository) FindPrompt(ctx context.Context, templateID string) (*domain.Prompt, error) {
	var doc PromptDocument
	if err := r.prompts.FindOne(ctx, bson.M{"_id": templateID}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "プロンプトが見つかりません")
	}
	return &domain.Prompt{TemplateID: doc.ID, Text: doc.Text}, nil
}

func (r *CatalogRepository) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	cursor, err := r.templates.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []TemplateDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	templates := make([]domain.Template, 0, len(docs))
	for _, doc := range docs {
		templates = append(templates, mapTemplate(doc))
	}
	return templates, nil
}

func (r *CatalogRepository) ListModules(ctx context.Context) ([]domain.Module, error) {
	cursor, err := r.modules.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []ModuleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	modules := make([]domain.Module, 0, len(docs))
	for _, doc := range docs {
		modules = append(modules, mapModule(doc))
	}
	return modules, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.NewNotFoundError(msg)
	}
	return err
}
