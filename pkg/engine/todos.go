package engine

import (
	"context"

	"github.com/simonhull/norms/pkg/todos"
)

// Todos lists the scoped TODO comments of the repository, honoring the
// configured ignore rules. An empty scope lists every scope.
func (e *Engine) Todos(ctx context.Context, root, scope string) (todos.Result, error) {
	return todos.NewScanner(e.walkOptions(), e.workers()).
		WithLogger(e.logger).
		Scan(ctx, root, scope)
}
