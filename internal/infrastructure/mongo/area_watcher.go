package mongo

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const watcherRetryDelay = 5 * time.Second

// AreaWatcher は areas コレクションの変更ストリームを購読し、更新前後のドキュメントを
// パイプラインへ流す。コレクションで changeStreamPreAndPostImages を有効にしておくこと。
type AreaWatcher struct {
	collection *mongo.Collection
	publisher  application.ChangePublisher
	logger     *log.Logger
}

func NewAreaWatcher(db *mongo.Database, collectionName string, publisher application.ChangePublisher, logger *log.Logger) *AreaWatcher {
	return &AreaWatcher{collection: db.Collection(collectionName), publisher: publisher, logger: logger}
}

type areaChangeEvent struct {
	OperationType            string   `bson:"operationType"`
	FullDocument             bson.Raw `bson:"fullDocument"`
	FullDocumentBeforeChange bson.Raw `bson:"fullDocumentBeforeChange"`
}

// Run blocks until ctx is cancelled, reopening the stream from the last resume token after errors.
func (w *AreaWatcher) Run(ctx context.Context) error {
	var resumeToken bson.Raw
	for {
		token, err := w.watch(ctx, resumeToken)
		if token != nil {
			resumeToken = token
		}
		if ctx.Err() != nil {
			return nil
		}
		w.logger.Printf("変更ストリームが停止しました。%s 後に再接続します: %v", watcherRetryDelay, err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(watcherRetryDelay):
		}
	}
}

func (w *AreaWatcher) watch(ctx context.Context, resumeAfter bson.Raw) (bson.Raw, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"update", "replace"}}}}}}},
	}
	opts := options.ChangeStream().
		SetFullDocument(options.WhenAvailable).
		SetFullDocumentBeforeChange(options.WhenAvailable)
	if resumeAfter != nil {
		opts.SetResumeAfter(resumeAfter)
	}

	stream, err := w.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, err
	}
	defer stream.Close(context.Background())
	w.logger.Printf("areas の変更ストリームを購読開始")

	var token bson.Raw
	for stream.Next(ctx) {
		token = stream.ResumeToken()
		var event areaChangeEvent
		if err := stream.Decode(&event); err != nil {
			w.logger.Printf("変更イベントの解析に失敗: %v", err)
			continue
		}
		change, ok := w.toChange(event)
		if !ok {
			continue
		}
		if err := w.publisher.Publish(ctx, change); err != nil {
			if errors.Is(err, application.ErrDispatcherStopped) || ctx.Err() != nil {
				return token, err
			}
			w.logger.Printf("領域 %s の変更をパイプラインへ渡せませんでした: %v", change.After.ID, err)
		}
	}
	if err := stream.Err(); err != nil {
		return token, err
	}
	return token, errors.New("change stream closed")
}

// toChange converts an event. A missing pre-image leaves Before empty; the pipeline claim
// ledger absorbs the resulting duplicates.
func (w *AreaWatcher) toChange(event areaChangeEvent) (application.AreaChange, bool) {
	if len(event.FullDocument) == 0 {
		return application.AreaChange{}, false
	}
	after, err := decodeAreaDocument(event.FullDocument)
	if err != nil {
		w.logger.Printf("変更後ドキュメントの解析に失敗: %v", err)
		return application.AreaChange{}, false
	}
	var before domain.Area
	if len(event.FullDocumentBeforeChange) > 0 {
		if before, err = decodeAreaDocument(event.FullDocumentBeforeChange); err != nil {
			w.logger.Printf("変更前ドキュメントの解析に失敗: %v", err)
			before = domain.Area{}
		}
	}
	return application.AreaChange{Before: before, After: after}, true
}
