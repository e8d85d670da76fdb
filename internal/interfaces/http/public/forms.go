package public

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/form"
	"github.com/EduTebar97/journeest-app/internal/interfaces/http/common"
)

func (h *Handler) formDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		readOnly, _ := strconv.ParseBool(r.URL.Query().Get("readOnly"))
		session, err := h.forms.LoadArea(ctx, chi.URLParam(r, "formId"), readOnly)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if moduleID := r.URL.Query().Get("module"); moduleID != "" {
			session.SetActiveModule(moduleID)
		}
		h.writeForm(w, http.StatusOK, session)
	}
}

// answerRecordHandler replaces the whole answer of one question and saves the draft.
func (h *Handler) answerRecordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := decodeJSON(r, &req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		session, err := h.forms.LoadArea(ctx, chi.URLParam(r, "formId"), false)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		moduleID, questionID := chi.URLParam(r, "moduleId"), chi.URLParam(r, "questionId")
		if err := session.RecordAnswer(moduleID, questionID, req.Value); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if err := session.SaveDraft(ctx); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		fields, err := session.RenderModule(moduleID)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		for _, field := range fields {
			if field.QuestionID == questionID {
				common.WriteJSON(h.logger, w, http.StatusOK, fieldUpdateResponse{
					Field:    field,
					Status:   session.Area().Status.String(),
					Progress: session.Progress(),
				})
				return
			}
		}
		h.writeForm(w, http.StatusOK, session)
	}
}

// answerEditHandler applies a single widget edit (toggle, add row, ...) and saves the draft.
func (h *Handler) answerEditHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var edit form.Edit
		if err := decodeJSON(r, &edit); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		session, err := h.forms.LoadArea(ctx, chi.URLParam(r, "formId"), false)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		field, err := session.ApplyEdit(chi.URLParam(r, "moduleId"), chi.URLParam(r, "questionId"), edit)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if err := session.SaveDraft(ctx); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, fieldUpdateResponse{
			Field:    field,
			Status:   session.Area().Status.String(),
			Progress: session.Progress(),
		})
	}
}

func (h *Handler) draftSaveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req draftRequest
		if err := decodeJSON(r, &req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		session, err := h.forms.LoadArea(ctx, chi.URLParam(r, "formId"), false)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if req.FormData != nil {
			if err := session.RecordAll(*req.FormData); err != nil {
				common.WriteError(h.logger, w, err)
				return
			}
		}
		if err := session.SaveDraft(ctx); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		h.writeForm(w, http.StatusOK, session)
	}
}

func (h *Handler) finalizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req finalizeRequest
		if err := decodeJSON(r, &req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		formID := chi.URLParam(r, "formId")
		session, err := h.forms.LoadArea(ctx, formID, false)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if req.FormData != nil && !session.Disabled() {
			if err := session.RecordAll(*req.FormData); err != nil {
				common.WriteError(h.logger, w, err)
				return
			}
		}
		if err := session.Finalize(ctx, req.Confirmed); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if h.logger != nil {
			h.logger.Printf("フォームが提出されました form=%s area=%s status=%s", formID, session.Area().ID, session.Area().Status)
		}
		h.writeForm(w, http.StatusOK, session)
	}
}

func (h *Handler) writeForm(w http.ResponseWriter, status int, session *application.Session) {
	resp, err := buildFormResponse(session)
	if err != nil {
		common.WriteError(h.logger, w, err)
		return
	}
	common.WriteJSON(h.logger, w, status, resp)
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, common.MaxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("リクエストの形式が不正です: %v", err)
	}
	return nil
}
