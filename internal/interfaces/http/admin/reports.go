package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EduTebar97/journeest-app/internal/interfaces/http/common"
)

func (h *Handler) overallReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		result, err := h.service.CompanyAreas(ctx, principal, chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, overallReportResponse{
			CompanyID:          result.Company.ID,
			CompanyName:        result.Company.Name,
			OverallReportDraft: result.Company.OverallReportDraft,
			FinalReportReady:   result.Company.FinalReportReady,
			AllReportsReady:    result.AllReportsReady,
			AreaCount:          len(result.Areas),
		})
	}
}

func (h *Handler) overallReportUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		var req overallReportUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		company, err := h.service.UpdateOverallReport(ctx, principal, chi.URLParam(r, "id"), req.Draft)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, companyToResponse(*company))
	}
}

func (h *Handler) overallReportSendHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		var req overallReportSendRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		companyID := chi.URLParam(r, "id")
		company, err := h.service.ApproveOverallReport(ctx, principal, companyID, req.FinalText)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if h.logger != nil {
			h.logger.Printf("統合レポートを公開しました company=%s by=%s", companyID, principal.ID)
		}
		common.WriteJSON(h.logger, w, http.StatusOK, companyToResponse(*company))
	}
}

func (h *Handler) overallReportRebuildHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.reportTimeout)
		defer cancel()

		rebuilt, err := h.service.RebuildOverallReport(ctx, principal, chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if !rebuilt {
			common.WriteJSON(h.logger, w, http.StatusConflict, map[string]any{
				"error":   "すべての領域のレポートが揃っていません",
				"rebuilt": false,
			})
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{"rebuilt": true})
	}
}

func (h *Handler) areaReportRetryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.reportTimeout)
		defer cancel()

		area, err := h.service.RetryReport(ctx, principal, chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, h.areaToResponse(*area))
	}
}

func (h *Handler) areaReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		report, err := h.service.AreaReport(ctx, principal, chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, h.areaReportToResponse(report))
	}
}
