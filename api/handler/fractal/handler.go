package fractal

import (
	"net/http"

	"github.com/friedchicken888/cab432-a2/api/common"
	"github.com/friedchicken888/cab432-a2/api/middleware"
	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"github.com/friedchicken888/cab432-a2/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

// Handler 分形生成处理器
type Handler struct {
	orch *orchestrator.Orchestrator
}

// NewHandler 创建分形生成处理器
func NewHandler(orch *orchestrator.Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// GetFractal GET /api/v1/fractal
func (h *Handler) GetFractal(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		common.RespondError(c, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}

	params, err := fractal.ParseQuery(c.Request.URL.Query())
	if err != nil {
		common.RespondDomainError(c, err)
		return
	}

	res, err := h.orch.FetchOrGenerate(c.Request.Context(), params, id)
	if err != nil {
		common.RespondDomainError(c, err)
		return
	}
	common.RespondJSON(c, res)
}
