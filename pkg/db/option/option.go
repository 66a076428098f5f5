package option

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ratecell/ratecell/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// ApplyPagination applies cursor pagination ordered by (created_at, id)
// descending. The id tie-break keeps rows sharing a timestamp from being
// skipped at page boundaries. One extra row is fetched so callers can
// detect a next page.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		size := p.PageSize
		if size <= 0 {
			size = 50
		}

		if p.PageToken != "" {
			if cursor, err := pagination.DecodeCursor(p.PageToken); err == nil && cursor.CreatedAt != "" {
				if ts, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err == nil {
					if id, err := snowflake.ParseString(cursor.ID); err == nil && id != 0 {
						db = db.Where("(created_at < ? OR (created_at = ? AND id < ?))", ts, ts, int64(id))
					} else {
						db = db.Where("created_at < ?", ts)
					}
				}
			}
		}

		return db.Order("created_at DESC, id DESC").Limit(size + 1)
	})
}

// WithOrder applies an explicit ORDER BY clause.
func WithOrder(clause string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(clause)
	})
}
