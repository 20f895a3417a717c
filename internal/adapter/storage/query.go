// internal/adapter/storage/query.go

package storage

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"peerhive/internal/domain/post"
)

const postsTable = "posts"

// postQuery builds post statements for one SQL dialect
type postQuery struct {
	builder sq.StatementBuilderType
	columns []string
	timeArg func(time.Time) any
}

var (
	postgresQuery = postQuery{
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		columns: []string{"id::text", "author", "text", "zone", "created_at", "votes"},
		timeArg: func(t time.Time) any { return t },
	}

	sqliteQuery = postQuery{
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		columns: []string{"id", "author", "text", "zone", "created_at", "votes"},
		timeArg: func(t time.Time) any { return t.UnixMilli() },
	}
)

// find renders a filtered listing, newest first
func (q postQuery) find(filter post.Filter) (string, []any, error) {
	sel := q.builder.
		Select(q.columns...).
		From(postsTable).
		OrderBy("created_at DESC", "id DESC")

	if len(filter.Zones) > 0 {
		zones := make([]string, len(filter.Zones))
		for i, z := range filter.Zones {
			zones[i] = string(z)
		}
		sel = sel.Where(sq.Eq{"zone": zones})
	}
	if filter.Author != "" {
		sel = sel.Where(sq.Eq{"author": filter.Author})
	}
	if !filter.Since.IsZero() {
		sel = sel.Where(sq.Gt{"created_at": q.timeArg(filter.Since)})
	}
	if filter.Limit > 0 {
		sel = sel.Limit(uint64(filter.Limit))
		if filter.Offset > 0 {
			sel = sel.Offset(uint64(filter.Offset))
		}
	}

	return sel.ToSql()
}

// get renders a lookup by ID
func (q postQuery) get(id string) (string, []any, error) {
	return q.builder.
		Select(q.columns...).
		From(postsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
}

// adjustVotes renders an atomic vote increment returning the updated row
func (q postQuery) adjustVotes(id string, delta int) (string, []any, error) {
	return q.builder.
		Update(postsTable).
		Set("votes", sq.Expr("votes + ?", delta)).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(q.columns, ", ")).
		ToSql()
}

// validID reports whether id can name a stored post
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
