package admin

import (
	"context"
	"net/http"

	"github.com/EduTebar97/journeest-app/internal/interfaces/http/common"
)

func (h *Handler) templateListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		templates, err := h.service.Templates(ctx)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		items := make([]templateResponse, 0, len(templates))
		for _, template := range templates {
			items = append(items, templateToResponse(template))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *Handler) moduleListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		modules, err := h.service.Modules(ctx)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		items := make([]moduleResponse, 0, len(modules))
		for _, module := range modules {
			items = append(items, moduleToResponse(module))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{"items": items})
	}
}
