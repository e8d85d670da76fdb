package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultBlobTimeout = 30 * time.Second

// AttachmentStore は添付ファイルを GridFS バケットに保存する。
type AttachmentStore struct {
	db         *mongo.Database
	bucketName string
	publicBase string
}

// NewAttachmentStore binds a GridFS bucket. publicBase is the URL prefix under which
// GET /attachments/{id} is served.
func NewAttachmentStore(db *mongo.Database, bucketName, publicBase string) *AttachmentStore {
	return &AttachmentStore{
		db:         db,
		bucketName: bucketName,
		publicBase: strings.TrimRight(strings.TrimSpace(publicBase), "/"),
	}
}

var _ application.BlobStore = (*AttachmentStore)(nil)

// bucket opens a bucket whose deadlines follow ctx. Buckets are cheap and not safe to share
// once deadlines are set.
func (s *AttachmentStore) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucketName))
	if err != nil {
		return nil, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultBlobTimeout)
	}
	if err := bucket.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := bucket.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	return bucket, nil
}

func (s *AttachmentStore) Put(ctx context.Context, key, contentType string, body io.Reader) (application.StoredBlob, error) {
	bucket, err := s.bucket(ctx)
	if err != nil {
		return application.StoredBlob{}, err
	}
	counter := &countingReader{r: body}
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	id, err := bucket.UploadFromStream(key, counter, opts)
	if err != nil {
		return application.StoredBlob{}, fmt.Errorf("GridFS への保存に失敗: %w", err)
	}
	return application.StoredBlob{
		ID:   id.Hex(),
		URL:  fmt.Sprintf("%s/attachments/%s", s.publicBase, id.Hex()),
		Size: counter.n,
	}, nil
}

func (s *AttachmentStore) Open(ctx context.Context, id string) (*application.BlobFile, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.NewNotFoundError("ファイルが見つかりません")
	}
	bucket, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := bucket.OpenDownloadStream(objectID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, domain.NewNotFoundError("ファイルが見つかりません")
		}
		return nil, err
	}
	file := stream.GetFile()
	name := file.Name
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return &application.BlobFile{
		Name:        name,
		ContentType: metadataContentType(file.Metadata),
		Size:        file.Length,
		Body:        stream,
	}, nil
}

func metadataContentType(metadata bson.Raw) string {
	if len(metadata) == 0 {
		return ""
	}
	value, err := metadata.LookupErr("contentType")
	if err != nil {
		return ""
	}
	contentType, _ := value.StringValueOK()
	return contentType
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
