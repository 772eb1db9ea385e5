package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"eating-management/backend/internal/model"
	pkgerrors "eating-management/backend/pkg/errors"
)

// AttendanceRepository 用餐偏离记录数据访问接口
// 记录只增删不改
type AttendanceRepository interface {
	// CreateCancellation 在事务内先查后插；同餐次已有取消记录返回 pkgerrors.ErrDuplicateKey
	CreateCancellation(ctx context.Context, rec *model.AttendanceRecord) error
	Create(ctx context.Context, rec *model.AttendanceRecord) error
	GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error)
	// Delete 按主键删除；记录不存在返回 gorm.ErrRecordNotFound
	Delete(ctx context.Context, id string) error
	// ListBySlot 某餐次全部记录，预加载 User 与 Registrar
	ListBySlot(ctx context.Context, date, mealType string) ([]model.AttendanceRecord, error)
	// ListByDateRange [from, to] 闭区间内的全部记录
	ListByDateRange(ctx context.Context, from, to string) ([]model.AttendanceRecord, error)
	// ListByUser 用户本人或由其登记的记录，按日期、餐次排序
	ListByUser(ctx context.Context, userID, from, to string) ([]model.AttendanceRecord, error)
}

// attendanceRepo AttendanceRepository 的 GORM 实现
type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) CreateCancellation(ctx context.Context, rec *model.AttendanceRecord) error {
	rec.Kind = model.RecordKindCancellation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.AttendanceRecord
		err := tx.Where("user_id = ? AND meal_date = ? AND meal_type = ? AND kind = ?",
			rec.UserID, rec.MealDate, rec.MealType, model.RecordKindCancellation).
			Take(&existing).Error
		if err == nil {
			return pkgerrors.ErrDuplicateKey
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		// 并发请求同时通过检查时，由部分唯一索引 uq_attendance_cancellation 兜底
		return tx.Create(rec).Error
	})
	return translate(err)
}

func (r *attendanceRepo) Create(ctx context.Context, rec *model.AttendanceRecord) error {
	return translate(r.db.WithContext(ctx).Create(rec).Error)
}

func (r *attendanceRepo) GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("record_id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return gorm.ErrRecordNotFound
	}
	result := r.db.WithContext(ctx).
		Where("record_id = ?", id).
		Delete(&model.AttendanceRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *attendanceRepo) ListBySlot(ctx context.Context, date, mealType string) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Registrar").
		Where("meal_date = ? AND meal_type = ?", date, mealType).
		Order("created_at ASC").
		Find(&recs).Error
	return recs, err
}

func (r *attendanceRepo) ListByDateRange(ctx context.Context, from, to string) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	// meal_type 倒序即 lunch 在 dinner 之前
	err := r.db.WithContext(ctx).
		Where("meal_date BETWEEN ? AND ?", from, to).
		Order("meal_date ASC, meal_type DESC, created_at ASC").
		Find(&recs).Error
	return recs, err
}

func (r *attendanceRepo) ListByUser(ctx context.Context, userID, from, to string) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	if !validID(userID) {
		return recs, nil
	}
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Registrar").
		Where("(user_id = ? OR registered_by = ?) AND meal_date BETWEEN ? AND ?", userID, userID, from, to).
		Order("meal_date ASC, meal_type DESC, created_at ASC").
		Find(&recs).Error
	return recs, err
}
