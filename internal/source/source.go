// Package source defines the capability contract every platform adapter
// implements, plus one concrete adapter per supported platform. Adapters are
// stateless fetch functions with injected credentials; nothing downstream
// inspects platform-specific fields beyond the normalized post contract.
package source

import (
	"context"
	"errors"

	"problemhunter/internal/domain/post"
)

// Sort selects the platform-defined ordering of fetched posts.
type Sort string

const (
	SortHot Sort = "hot"
	SortNew Sort = "new"
	SortTop Sort = "top"
)

// Query carries one fetch request. In browse mode adapters ignore Keywords
// and return top/recent content instead.
type Query struct {
	Keywords   []string
	Limit      int
	BrowseMode bool
	Sort       Sort
}

// Source is one external content platform. Implementations must return a
// slice (possibly empty) rather than nil, populate the required post fields,
// and complete within a bounded time.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]post.Post, error)
}

// ErrMissingCredentials is returned when an explicitly-enabled source is
// constructed without the credential it needs. This is a hard stop before
// any fetch is attempted.
var ErrMissingCredentials = errors.New("source: missing required credentials")
