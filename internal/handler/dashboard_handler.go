package handler

import (
	"context"
	"net/http"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/config"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/middleware"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/model"
	"github.com/doj0985/databricks-aibi-external-embedding/pkg/apierror"
)

type tokenMinter interface {
	Mint(ctx context.Context, user model.User) (model.TokenResult, error)
}

type DashboardHandler struct {
	minter tokenMinter
	cfg    config.DatabricksConfig
}

func NewDashboardHandler(minter tokenMinter, cfg config.DatabricksConfig) *DashboardHandler {
	return &DashboardHandler{minter: minter, cfg: cfg}
}

// EmbedConfig mints a fresh scoped token for the session's user and returns
// it together with the dashboard coordinates the embedding SDK needs. Tokens
// are minted per request, never cached.
func (h *DashboardHandler) EmbedConfig(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	token, err := h.minter.Mint(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.EmbedConfig{
		WorkspaceURL:   h.cfg.WorkspaceURL,
		WorkspaceID:    h.cfg.WorkspaceID,
		DashboardID:    h.cfg.DashboardID,
		WarehouseID:    h.cfg.WarehouseID,
		EmbedToken:     token.AccessToken,
		TokenExpiresIn: token.ExpiresIn,
		UserContext:    user,
	})
}
