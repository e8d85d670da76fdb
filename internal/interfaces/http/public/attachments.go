package public

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/interfaces/http/common"
)

const attachmentTimeout = 30 * time.Second

func (h *Handler) attachmentUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// multipart のヘッダ分の余裕を持たせる。
		r.Body = http.MaxBytesReader(w, r.Body, h.maxAttachmentBytes+(1<<20))
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				common.WriteJSON(h.logger, w, http.StatusRequestEntityTooLarge, map[string]string{
					"error": fmt.Sprintf("ファイルサイズは%dバイト以内にしてください", h.maxAttachmentBytes),
				})
				return
			}
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "file フィールドが必要です"})
			return
		}
		defer file.Close()
		if header.Size > h.maxAttachmentBytes {
			common.WriteJSON(h.logger, w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("ファイルサイズは%dバイト以内にしてください", h.maxAttachmentBytes),
			})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		ctx, cancel := context.WithTimeout(r.Context(), attachmentTimeout)
		defer cancel()

		attachment, err := h.attachments.Upload(ctx, application.UploadCommand{
			FormID:      chi.URLParam(r, "formId"),
			Name:        header.Filename,
			ContentType: contentType,
			Body:        file,
		})
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusCreated, map[string]any{
			"attachment": buildAttachmentResponse(*attachment),
		})
	}
}

func (h *Handler) attachmentDownloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), attachmentTimeout)
		defer cancel()

		file, err := h.attachments.Open(ctx, chi.URLParam(r, "fileId"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		defer file.Body.Close()

		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
		if file.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
		}
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, file.Body); err != nil && h.logger != nil {
			h.logger.Printf("添付ファイルの送信に失敗 id=%s: %v", chi.URLParam(r, "fileId"), err)
		}
	}
}
