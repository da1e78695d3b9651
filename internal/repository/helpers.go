package repository

import (
	"strings"

	"gorm.io/gorm"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paginate(query *gorm.DB, limit, offset int) *gorm.DB {
	limit, offset = normalizePage(limit, offset)
	return query.Limit(limit).Offset(offset)
}

func likePattern(search string) string {
	search = strings.TrimSpace(search)
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(search) + "%"
}
