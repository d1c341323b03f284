package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repository 数据访问入口：用户与课程两个仓储共享同一连接池
type Repository struct {
	db *gorm.DB

	User  UserRepository
	Class ClassRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:    db,
		User:  NewUserRepo(db),
		Class: NewClassRepo(db),
	}
}

// Ping 检查数据库连通性，供 /health 使用
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
