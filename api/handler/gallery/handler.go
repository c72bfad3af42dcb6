package gallery

import (
	"net/http"
	"strconv"

	"github.com/friedchicken888/cab432-a2/api/common"
	"github.com/friedchicken888/cab432-a2/api/middleware"
	"github.com/friedchicken888/cab432-a2/internal/gallery"
	"github.com/gin-gonic/gin"
)

// Handler 图库处理器
type Handler struct {
	svc *gallery.Service
}

// NewHandler 创建图库处理器
func NewHandler(svc *gallery.Service) *Handler {
	return &Handler{svc: svc}
}

// List GET /api/v1/gallery
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

// ListAll GET /api/v1/admin/gallery
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

// Delete DELETE /api/v1/gallery/:id
func (h *Handler) Delete(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	entryID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || entryID == 0 {
		common.RespondError(c, http.StatusBadRequest, "Invalid gallery entry id")
		return
	}

	res, err := h.svc.DeleteMembership(c.Request.Context(), uint(entryID), id.UserID, id.IsAdmin())
	if err != nil {
		status, msg := common.StatusFor(err)
		if status == http.StatusNotFound {
			msg = "Gallery entry not found or you don't have permission to delete it."
			if id.IsAdmin() {
				msg = "Gallery entry not found."
			}
			common.RespondError(c, status, msg)
			return
		}
		common.RespondDomainError(c, err)
		return
	}
	common.RespondJSON(c, gin.H{"message": res.Message(), "id": res.ID, "hash": res.Hash})
}
