package history

import (
	"github.com/friedchicken888/cab432-a2/api/common"
	"github.com/friedchicken888/cab432-a2/api/middleware"
	"github.com/friedchicken888/cab432-a2/internal/history"
	"github.com/gin-gonic/gin"
)

// Handler 历史记录处理器
type Handler struct {
	svc *history.Service
}

func NewHandler(svc *history.Service) *Handler {
	return &Handler{svc: svc}
}

// List GET /api/v1/history
func (h *Handler) List(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	q, err := common.BindListQuery(c)
	if err != nil {
		common.RespondDomainError(c, err)
		return
	}

	res, err := h.svc.ListForUser(c.Request.Context(), id.UserID, q)
	if err != nil {
		common.RespondDomainError(c, err)
		return
	}
	common.RespondJSON(c, res)
}

// ListAll GET /api/v1/admin/history
func (h *Handler) ListAll(c *gin.Context) {
	q, err := common.BindListQuery(c)
	if err != nil {
		common.RespondDomainError(c, err)
		return
	}

	res, err := h.svc.ListAll(c.Request.Context(), q)
	if err != nil {
		common.RespondDomainError(c, err)
		return
	}
	common.RespondJSON(c, res)
}
