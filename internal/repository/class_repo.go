package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/reinieltalplacido/classalign/internal/model"
)

// ClassRepository 课程数据访问接口
// 所有查询都限定在单个用户范围内；列表顺序即网格冲突时的优先顺序
type ClassRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.Class, error)
	GetByID(ctx context.Context, id string) (*model.Class, error)
	FindBySubject(ctx context.Context, userID, subject string) (*model.Class, error)
	Create(ctx context.Context, class *model.Class) error
	CreateBatch(ctx context.Context, classes []model.Class) error
	Update(ctx context.Context, class *model.Class) error
	DeleteByID(ctx context.Context, id, userID string) (int64, error)
	DeleteBySubject(ctx context.Context, userID, subject string) (int64, error)
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

type classRepo struct {
	db *gorm.DB
}

// NewClassRepo 创建 ClassRepository 实例
func NewClassRepo(db *gorm.DB) ClassRepository {
	return &classRepo{db: db}
}

func (r *classRepo) ListByUser(ctx context.Context, userID string) ([]model.Class, error) {
	var classes []model.Class
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, class_id ASC").
		Find(&classes).Error
	return classes, err
}

func (r *classRepo) GetByID(ctx context.Context, id string) (*model.Class, error) {
	var class model.Class
	err := r.db.WithContext(ctx).
		Where("class_id = ?", id).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

// FindBySubject 返回该用户最早创建的同名课程（大小写不敏感）
func (r *classRepo) FindBySubject(ctx context.Context, userID, subject string) (*model.Class, error) {
	var class model.Class
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND LOWER(subject) = LOWER(?)", userID, subject).
		Order("created_at ASC, class_id ASC").
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) Create(ctx context.Context, class *model.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

// CreateBatch 在一个事务中批量写入（ICS 导入）
func (r *classRepo) CreateBatch(ctx context.Context, classes []model.Class) error {
	if len(classes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&classes).Error
	})
}

func (r *classRepo) Update(ctx context.Context, class *model.Class) error {
	return r.db.WithContext(ctx).
		Model(&model.Class{}).
		Where("class_id = ? AND user_id = ?", class.ClassID, class.UserID).
		Updates(map[string]interface{}{
			"subject":    class.Subject,
			"day":        class.Day,
			"time":       class.Time,
			"room":       class.Room,
			"professor":  class.Professor,
			"color":      class.Color,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *classRepo) DeleteByID(ctx context.Context, id, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("class_id = ? AND user_id = ?", id, userID).
		Delete(&model.Class{})
	return res.RowsAffected, res.Error
}

func (r *classRepo) DeleteBySubject(ctx context.Context, userID, subject string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND LOWER(subject) = LOWER(?)", userID, subject).
		Delete(&model.Class{})
	return res.RowsAffected, res.Error
}

func (r *classRepo) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Class{})
	return res.RowsAffected, res.Error
}
