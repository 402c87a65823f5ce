package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/constants"
)

// PageParams is the requested page of a listing
type PageParams struct {
	Page     int
	PageSize int
}

// ParsePageParams reads page and page_size from the query string, with limit
// accepted as an alias of page_size. Out of range values fall back to the
// defaults.
func ParsePageParams(c *gin.Context) PageParams {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}

	size := queryInt(c, "page_size", 0)
	if size == 0 {
		size = queryInt(c, "limit", constants.DefaultPageSize)
	}
	if size < constants.MinPageSize || size > constants.MaxPageSize {
		size = constants.DefaultPageSize
	}

	return PageParams{Page: page, PageSize: size}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
