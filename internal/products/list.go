package product

const (
	defaultPerPage = 12
	maxPerPage     = 100
)

// ListProductsInput captures the catalog browse knobs.
type ListProductsInput struct {
	Query   string
	Page    int
	PerPage int
}

func (in ListProductsInput) normalized() ListProductsInput {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.PerPage <= 0 {
		in.PerPage = defaultPerPage
	}
	if in.PerPage > maxPerPage {
		in.PerPage = maxPerPage
	}
	return in
}

func (in ListProductsInput) offset() int {
	return (in.Page - 1) * in.PerPage
}
