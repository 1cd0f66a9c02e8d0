package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination carries offset-based paging state.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// SetLinkHeaders advertises first/prev/next/last pages as RFC 8288 Link
// relations on the current path. prev and next are omitted at the edges.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	last := p.Total - p.Limit
	if last < 0 {
		last = 0
	}

	rels := []struct {
		name   string
		offset int
		want   bool
	}{
		{"first", 0, true},
		{"prev", max(p.Offset-p.Limit, 0), p.Offset > 0},
		{"next", p.Offset + p.Limit, p.Offset+p.Limit < p.Total},
		{"last", last, true},
	}

	links := make([]string, 0, len(rels))
	for _, r := range rels {
		if !r.want {
			continue
		}
		links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel=%q`, c.Path(), r.offset, p.Limit, r.name))
	}
	c.Set(fiber.HeaderLink, strings.Join(links, ", "))
}
