package domain

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps the request to a valid zero-based page.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = DefaultPageSize
	}
	if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}
	return r
}

func (r PageRequest) Offset() uint64 {
	return uint64(r.Page) * uint64(r.Size)
}

type Page[T any] struct {
	Items      []T
	Page       int
	Size       int
	TotalItems int64
}

func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.TotalItems + int64(p.Size) - 1) / int64(p.Size))
}
