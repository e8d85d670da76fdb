package admin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
	"github.com/EduTebar97/journeest-app/internal/interfaces/http/common"
)

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (application.Principal, bool) {
	user, ok := common.UserFromContext(r.Context())
	if !ok {
		common.WriteJSON(h.logger, w, http.StatusInternalServerError, map[string]string{"error": "認証情報を取得できませんでした"})
		return application.Principal{}, false
	}
	return user.Principal(), true
}

func (h *Handler) authVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := common.UserFromContext(r.Context())
		if !ok {
			common.WriteJSON(h.logger, w, http.StatusInternalServerError, map[string]string{"error": "認証情報の取得に失敗しました"})
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{
			"status": "ok",
			"user":   user,
		})
	}
}

func (h *Handler) companyListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		companies, err := h.service.ListCompanies(ctx, principal)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		items := make([]companyResponse, 0, len(companies))
		for _, company := range companies {
			items = append(items, companyToResponse(company))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *Handler) companyCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		var req companyCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		company, err := h.service.RegisterCompany(ctx, principal, application.RegisterCompanyCommand{
			Name:    req.Name,
			AdminID: req.AdminID,
		})
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusCreated, companyToResponse(*company))
	}
}

func (h *Handler) companyDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		company, err := h.service.Company(ctx, principal, chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, companyToResponse(*company))
	}
}

func (h *Handler) areaListHandler() http.HandlerFunc {
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
		resp := companyAreasResponse{
			Company:         companyToResponse(result.Company),
			Areas:           make([]areaResponse, 0, len(result.Areas)),
			AllReportsReady: result.AllReportsReady,
		}
		for _, area := range result.Areas {
			resp.Areas = append(resp.Areas, h.areaToResponse(area))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, resp)
	}
}

// areaCreateHandler registers areas in one batch and sends invitations in the background.
// Invitation failures never fail the request.
func (h *Handler) areaCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := h.principal(w, r)
		if !ok {
			return
		}
		var req areaCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		cmds, err := buildAreaCommands(req)
		if err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		companyID := chi.URLParam(r, "id")
		areas, err := h.service.CreateAreas(ctx, principal, companyID, cmds)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if h.logger != nil {
			h.logger.Printf("領域を登録しました company=%s count=%d", companyID, len(areas))
		}

		if h.inviter != nil {
			created := append([]domain.Area(nil), areas...)
			h.invitations.Add(1)
			go func() {
				defer h.invitations.Done()
				inviteCtx, cancel := context.WithTimeout(context.Background(), h.invitationTimeout)
				defer cancel()
				h.inviter.InviteAll(inviteCtx, created)
			}()
		}

		items := make([]areaResponse, 0, len(areas))
		for _, area := range areas {
			items = append(items, h.areaToResponse(area))
		}
		common.WriteJSON(h.logger, w, http.StatusCreated, map[string]any{"items": items})
	}
}

func buildAreaCommands(req areaCreateRequest) ([]application.CreateAreaCommand, error) {
	if len(req.Areas) == 0 {
		return nil, fmt.Errorf("領域を1件以上指定してください")
	}
	if len(req.Areas) > common.MaxAreasPerRequest {
		return nil, fmt.Errorf("一度に登録できる領域は%d件までです", common.MaxAreasPerRequest)
	}
	cmds := make([]application.CreateAreaCommand, 0, len(req.Areas))
	for i, input := range req.Areas {
		email, err := normalizeEmail(input.Responsible.Email)
		if err != nil {
			return nil, fmt.Errorf("%d件目: %v", i+1, err)
		}
		cmds = append(cmds, application.CreateAreaCommand{
			Name:       input.Name,
			TemplateID: strings.TrimSpace(input.TemplateID),
			Responsible: domain.Responsible{
				Name:     input.Responsible.Name,
				Email:    email,
				Position: input.Responsible.Position,
			},
		})
	}
	return cmds, nil
}
