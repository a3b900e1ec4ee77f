package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/taskgenie-api/internal/utils"
)

// Paginate applies pagination to a GORM query. Zero params leave the query unbounded.
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if params.Limit <= 0 {
			return db
		}
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// OwnedBy restricts a query to tasks owned by the given user.
func OwnedBy(ownerID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.owner_id = ?", ownerID)
	}
}
