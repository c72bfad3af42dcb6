package common

import (
	"fmt"

	"github.com/friedchicken888/cab432-a2/database/repo/listing"
	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"github.com/gin-gonic/gin"
)

// ListRequest 列表分页与排序参数
type ListRequest struct {
	Limit     int    `form:"limit" binding:"omitempty,min=0"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// BindListQuery reads paging, sorting and filter parameters. Sort names
// are resolved later against the listing's allow-list.
func BindListQuery(c *gin.Context) (listing.Query, error) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return listing.Query{}, fmt.Errorf("%w: %v", fractal.ErrInvalidQuery, err)
	}

	raw := make(map[string]string)
	for _, k := range listing.FilterKeys {
		if v, ok := c.GetQuery(k); ok {
			raw[k] = v
		}
	}
	filters, err := listing.DecodeFilters(raw)
	if err != nil {
		return listing.Query{}, err
	}

	return listing.Query{
		Filters:   filters,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}, nil
}
