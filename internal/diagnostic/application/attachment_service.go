package application

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

// AttachmentService stores files uploaded from the collaborator form.
type AttachmentService struct {
	areas AreaRepository
	blobs BlobStore
	now   func() time.Time
}

func NewAttachmentService(areas AreaRepository, blobs BlobStore) *AttachmentService {
	return &AttachmentService{areas: areas, blobs: blobs, now: func() time.Time { return time.Now().UTC() }}
}

// UploadCommand is one uploaded file.
type UploadCommand struct {
	FormID      string
	Name        string
	ContentType string
	Body        io.Reader
}

// Upload stores the file under attachments/{areaId}/{name} and links it to the area.
// Areas that can no longer be edited refuse uploads.
func (s *AttachmentService) Upload(ctx context.Context, cmd UploadCommand) (*domain.Attachment, error) {
	name := sanitizeFileName(cmd.Name)
	if name == "" {
		return nil, domain.NewInvalidError("ファイル名が不正です")
	}
	area, err := s.areas.FindByFormID(ctx, cmd.FormID)
	if err != nil {
		return nil, persistenceError("領域の取得に失敗しました", err)
	}
	if !area.Status.Editable() {
		return nil, domain.NewFormDisabledError()
	}

	key := fmt.Sprintf("attachments/%s/%s", area.ID, name)
	blob, err := s.blobs.Put(ctx, key, cmd.ContentType, cmd.Body)
	if err != nil {
		return nil, persistenceError("ファイルの保存に失敗しました", err)
	}

	attachment := domain.Attachment{
		ID:          blob.ID,
		Name:        name,
		URL:         blob.URL,
		ContentType: cmd.ContentType,
		Size:        blob.Size,
		UploadedAt:  s.now(),
	}
	if err := s.areas.AppendAttachment(ctx, area.ID, attachment); err != nil {
		return nil, persistenceError("添付ファイル情報の保存に失敗しました", err)
	}
	return &attachment, nil
}

// Open streams a stored attachment.
func (s *AttachmentService) Open(ctx context.Context, id string) (*BlobFile, error) {
	file, err := s.blobs.Open(ctx, id)
	if err != nil {
		return nil, persistenceError("ファイルの取得に失敗しました", err)
	}
	return file, nil
}

func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
