package pagination

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params holds one-based page parameters for a list request.
type Params struct {
	Page     int
	PageSize int
}

// FromContext extracts page parameters from the echo context, clamping to
// sane bounds.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	return Params{Page: page, PageSize: size}
}

// Query renders the parameters as upstream query values. The platform's
// endpoints all accept page/page_size regardless of which envelope they
// respond with.
func (p Params) Query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.normalizedPage()))
	q.Set("page_size", strconv.Itoa(p.normalizedSize()))
	return q
}

// Offset converts the page parameters to a zero-based item offset.
func (p Params) Offset() int {
	return (p.normalizedPage() - 1) * p.normalizedSize()
}

// HasNext reports whether results exist beyond the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset()+p.normalizedSize() < total
}

func (p Params) normalizedPage() int {
	if p.Page < 1 {
		return 1
	}
	return p.Page
}

func (p Params) normalizedSize() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}
