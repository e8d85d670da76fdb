package main

import (
	"context"
	_ "embed"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/EduTebar97/journeest-app/internal/config"
	mongorepo "github.com/EduTebar97/journeest-app/internal/infrastructure/mongo"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

type seedOptions struct {
	envFile         string
	catalogPath     string
	dropCollections bool
}

type collections struct {
	areas               string
	companies           string
	templates           string
	modules             string
	prompts             string
	pipelineEvents      string
	failedNotifications string
}

func main() {
	opts := parseFlags()

	if err := config.LoadEnvFile(opts.envFile); err != nil {
		log.Fatalf("環境変数の読み込みに失敗しました: %v", err)
	}

	cfg := collections{
		areas:               envOrDefault("AREA_COLLECTION", "areas"),
		companies:           envOrDefault("COMPANY_COLLECTION", "companies"),
		templates:           envOrDefault("TEMPLATE_COLLECTION", "templates"),
		modules:             envOrDefault("MODULE_COLLECTION", "modules"),
		prompts:             envOrDefault("PROMPT_COLLECTION", "prompts"),
		pipelineEvents:      envOrDefault("PIPELINE_EVENT_COLLECTION", "pipeline_events"),
		failedNotifications: envOrDefault("FAILED_NOTIFICATION_COLLECTION", "failed_notifications"),
	}

	raw := embeddedCatalog
	source := "embedded"
	if opts.catalogPath != "" {
		b, err := os.ReadFile(opts.catalogPath)
		if err != nil {
			log.Fatalf("カタログファイルの読み込みに失敗しました: %v", err)
		}
		raw = b
		source = opts.catalogPath
	}
	catalog, err := parseCatalog(raw)
	if err != nil {
		log.Fatalf("カタログが不正です (%s): %v", source, err)
	}

	mongoURI := envOrDefault("MONGO_URI", "mongodb://localhost:27017")
	dbName := envOrDefault("MONGO_DB", "journeest")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("MongoDB 接続に失敗しました: %v", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	db := client.Database(dbName)

	if opts.dropCollections {
		dropCollections(ctx, db, cfg)
		log.Printf("カタログのコレクションを削除しました")
	}

	if err := ensureIndexes(ctx, db, cfg); err != nil {
		log.Fatalf("インデックス作成に失敗しました: %v", err)
	}

	for _, doc := range catalog.Modules {
		if err := upsert(ctx, db.Collection(cfg.modules), doc.ID, doc); err != nil {
			log.Fatalf("モジュール %s の投入に失敗しました: %v", doc.ID, err)
		}
	}
	for _, doc := range catalog.Templates {
		if err := upsert(ctx, db.Collection(cfg.templates), doc.ID, doc); err != nil {
			log.Fatalf("テンプレート %s の投入に失敗しました: %v", doc.ID, err)
		}
	}
	for _, doc := range catalog.Prompts {
		if err := upsert(ctx, db.Collection(cfg.prompts), doc.ID, doc); err != nil {
			log.Fatalf("プロンプト %s の投入に失敗しました: %v", doc.ID, err)
		}
	}

	log.Printf("Seed 完了: modules=%d templates=%d prompts=%d (catalog=%s)",
		len(catalog.Modules), len(catalog.Templates), len(catalog.Prompts), source)
	log.Printf("Mongo: %s / %s", mongoURI, dbName)
}

func parseFlags() seedOptions {
	var opts seedOptions
	flag.StringVar(&opts.envFile, "env", ".env", "読み込む env ファイルのパス")
	flag.StringVar(&opts.catalogPath, "catalog", "", "カタログ YAML のパス (未指定なら同梱のカタログ)")
	flag.BoolVar(&opts.dropCollections, "drop", true, "カタログのコレクションを削除してから投入する")
	flag.Parse()
	opts.catalogPath = strings.TrimSpace(opts.catalogPath)
	return opts
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// dropCollections はカタログ系だけを消す。エリアや企業のデータは残す。
func dropCollections(ctx context.Context, db *mongo.Database, cfg collections) {
	for _, name := range []string{cfg.modules, cfg.templates, cfg.prompts} {
		if err := db.Collection(name).Drop(ctx); err != nil {
			// Drop は存在しない場合も err を返すので warning ログにとどめる
			log.Printf("WARN: コレクション %s の削除に失敗: %v", name, err)
		}
	}
}

func ensureIndexes(ctx context.Context, db *mongo.Database, cfg collections) error {
	areaIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "formId", Value: 1}},
			Options: options.Index().SetName("uniq_area_formId").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "companyId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_area_company_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_area_status"),
		},
	}
	if _, err := db.Collection(cfg.areas).Indexes().CreateMany(ctx, areaIndexes); err != nil {
		return err
	}

	companyIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "adminId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_company_admin_createdAt"),
		},
	}
	if _, err := db.Collection(cfg.companies).Indexes().CreateMany(ctx, companyIndexes); err != nil {
		return err
	}

	eventIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_pipeline_event_createdAt"),
		},
	}
	if _, err := db.Collection(cfg.pipelineEvents).Indexes().CreateMany(ctx, eventIndexes); err != nil {
		return err
	}

	failedIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_failed_notification_status_createdAt"),
		},
	}
	if _, err := db.Collection(cfg.failedNotifications).Indexes().CreateMany(ctx, failedIndexes); err != nil {
		return err
	}
	return nil
}

func upsert(ctx context.Context, col *mongo.Collection, id string, doc interface{}) error {
	_, err := col.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

// catalogFile は catalog.yaml のトップレベル構造。
type catalogFile struct {
	Modules   []mongorepo.ModuleDocument   `yaml:"modules"`
	Templates []mongorepo.TemplateDocument `yaml:"templates"`
	Prompts   []mongorepo.PromptDocument   `yaml:"prompts"`
}
