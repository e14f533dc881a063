package domain

// Pagination controls cursor based listing queries.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage wraps a page of results plus the cursor for the next page.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
