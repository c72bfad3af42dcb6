package blobs

import (
	"errors"
	"net/http"
	"strings"

	"github.com/friedchicken888/cab432-a2/api/common"
	"github.com/friedchicken888/cab432-a2/storage"
	"github.com/gin-gonic/gin"
)

// Handler serves blobs of the local store to holders of a signed link.
type Handler struct {
	store *storage.LocalStorage
}

func NewHandler(store *storage.LocalStorage) *Handler {
	return &Handler{store: store}
}

// Get GET /blobs/*key?token=
func (h *Handler) Get(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if err := h.store.Verify(key, c.Query("token")); err != nil {
		common.RespondError(c, http.StatusForbidden, "Invalid or expired link")
		return
	}

	path, err := h.store.Path(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			common.RespondError(c, http.StatusNotFound, "Not found")
			return
		}
		common.RespondError(c, http.StatusBadRequest, "Invalid blob key")
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.File(path)
}
