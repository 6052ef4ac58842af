package pagination

import (
	"context"
	"iter"
	"sync"
)

// Cursor is an opaque continuation token issued by a remote listing.
// The empty cursor means no further pages.
type Cursor string

// NoCursor marks the first request and the end of a listing.
const NoCursor Cursor = ""

// Page is one batch of items plus the continuation for the next request.
type Page[T any] struct {
	Items      []T
	NextCursor Cursor
}

// HasNext reports whether the remote issued a continuation cursor.
func (page Page[T]) HasNext() bool {
	return page.NextCursor != NoCursor
}

// PageFunc requests the page addressed by cursor; NoCursor requests the first page.
type PageFunc[T any] func(executionContext context.Context, cursor Cursor) (Page[T], error)

// Fetcher lazily walks a listing. It is not restartable: once the remote stops
// issuing cursors, or a request fails, later calls yield nothing.
type Fetcher[T any] struct {
	fetchPage PageFunc[T]
	mutex     sync.Mutex
	cursor    Cursor
	exhausted bool
	pageCount int
}

// NewFetcher constructs a fetcher positioned before the first page.
func NewFetcher[T any](fetchPage PageFunc[T]) *Fetcher[T] {
	return &Fetcher[T]{fetchPage: fetchPage}
}

// NextPage requests the next page. The boolean is false once the listing is exhausted.
func (fetcher *Fetcher[T]) NextPage(executionContext context.Context) ([]T, bool, error) {
	fetcher.mutex.Lock()
	defer fetcher.mutex.Unlock()

	if fetcher.exhausted {
		return nil, false, nil
	}

	page, fetchError := fetcher.fetchPage(executionContext, fetcher.cursor)
	if fetchError != nil {
		fetcher.exhausted = true
		return nil, false, fetchError
	}

	fetcher.pageCount++
	fetcher.cursor = page.NextCursor
	if !page.HasNext() {
		fetcher.exhausted = true
	}
	return page.Items, true, nil
}

// PagesFetched reports how many pages were retrieved so far.
func (fetcher *Fetcher[T]) PagesFetched() int {
	fetcher.mutex.Lock()
	defer fetcher.mutex.Unlock()
	return fetcher.pageCount
}

// Pages yields each page in order. A failing request is yielded once as the error and ends iteration.
func (fetcher *Fetcher[T]) Pages(executionContext context.Context) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		for {
			items, more, fetchError := fetcher.NextPage(executionContext)
			if fetchError != nil {
				yield(nil, fetchError)
				return
			}
			if !more {
				return
			}
			if !yield(items, nil) {
				return
			}
		}
	}
}

// Items yields every item of every page in order.
func (fetcher *Fetcher[T]) Items(executionContext context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for items, fetchError := range fetcher.Pages(executionContext) {
			if fetchError != nil {
				var zeroValue T
				yield(zeroValue, fetchError)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Collect drains the remaining pages into one slice.
func (fetcher *Fetcher[T]) Collect(executionContext context.Context) ([]T, error) {
	collected := make([]T, 0)
	for items, fetchError := range fetcher.Pages(executionContext) {
		if fetchError != nil {
			return collected, fetchError
		}
		collected = append(collected, items...)
	}
	return collected, nil
}
