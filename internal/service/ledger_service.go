package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"eating-management/backend/internal/dto"
	"eating-management/backend/internal/mealslot"
	"eating-management/backend/internal/model"
	"eating-management/backend/internal/repository"
	pkgerrors "eating-management/backend/pkg/errors"
	"eating-management/backend/pkg/metrics"
)

// ── 用餐记录模块业务错误 ──

var (
	ErrInvalidInput       = errors.New("参数无效")
	ErrCutoffPassed       = errors.New("已超过该餐次的取消截止时间")
	ErrAlreadyCancelled   = errors.New("该餐次已取消")
	ErrRecordNotFound     = errors.New("记录不存在")
	ErrForbidden          = errors.New("无权操作该记录")
	ErrRecordKindMismatch = errors.New("记录类型不匹配")
	ErrTooLateToCancel    = errors.New("距开餐不足规定时长，无法删除登记")
)

// maxListDays 个人记录查询的最大跨度
const maxListDays = 366

// LedgerService 用餐记录业务接口
//
// 默认所有成员每餐用餐，记录只表示偏离：
//   - 取消记录：截止时刻前创建与撤销，同一成员同一餐次至多一条
//   - 加餐记录：无时间限制，可重复累加；删除需距开餐超过前置时长
type LedgerService interface {
	Cancel(ctx context.Context, p dto.Principal, req *dto.CancelMealRequest) (*dto.AttendanceRecordResponse, error)
	Uncancel(ctx context.Context, p dto.Principal, recordID string) error
	AddGuestPortions(ctx context.Context, p dto.Principal, req *dto.GuestRegistrationRequest) (*dto.AttendanceRecordResponse, error)
	RemoveRegistration(ctx context.Context, p dto.Principal, recordID string) error
	ListMine(ctx context.Context, p dto.Principal, req *dto.MyRecordsRequest) ([]dto.AttendanceRecordResponse, error)
}

type ledgerService struct {
	repo   *repository.Repository
	cal    *mealslot.Calendar
	audit  AuditSink
	lead   time.Duration
	now    Clock
	logger *zap.Logger
}

// NewLedgerService 创建 LedgerService 实例
// lead 为删除加餐登记所需的距开餐最短时长
func NewLedgerService(
	repo *repository.Repository,
	cal *mealslot.Calendar,
	audit AuditSink,
	lead time.Duration,
	now Clock,
	logger *zap.Logger,
) LedgerService {
	return &ledgerService{
		repo:   repo,
		cal:    cal,
		audit:  audit,
		lead:   lead,
		now:    now,
		logger: logger,
	}
}

// ═══════════════════════════════════════════════════════════
// Cancel — 取消用餐
// ═══════════════════════════════════════════════════════════

func (s *ledgerService) Cancel(ctx context.Context, p dto.Principal, req *dto.CancelMealRequest) (res *dto.AttendanceRecordResponse, err error) {
	ctx, span := tracer.Start(ctx, "LedgerService.Cancel")
	defer span.End()
	defer func() { observeLedger(span, "cancel", err) }()

	slot, err := s.resolveSlot(req.MealDate, req.MealType)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("slot.id", slot.ID()))

	if !(mealslot.CutoffRule{}).Allows(slot, s.now()) {
		return nil, ErrCutoffPassed
	}

	rec := &model.AttendanceRecord{
		UserID:       p.UserID,
		MealDate:     slot.Date,
		MealType:     string(slot.Meal),
		Kind:         model.RecordKindCancellation,
		RegisteredBy: p.UserID,
	}
	if err := s.repo.Attendance.CreateCancellation(ctx, rec); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrAlreadyCancelled
		}
		s.logger.Error("创建取消记录失败", zap.String("user_id", p.UserID), zap.String("slot", slot.ID()), zap.Error(err))
		return nil, err
	}

	s.audit.Record(ctx, p.UserID, model.ActionCancelMeal,
		fmt.Sprintf("取消 %s %s", slot.Date, slot.Meal.Label()), rec.RecordID)

	resp := toRecordResponse(rec)
	return &resp, nil
}

// ═══════════════════════════════════════════════════════════
// Uncancel — 撤销取消（恢复用餐）
// ═══════════════════════════════════════════════════════════

func (s *ledgerService) Uncancel(ctx context.Context, p dto.Principal, recordID string) (err error) {
	ctx, span := tracer.Start(ctx, "LedgerService.Uncancel")
	defer span.End()
	defer func() { observeLedger(span, "uncancel", err) }()

	rec, err := s.getRecord(ctx, recordID)
	if err != nil {
		return err
	}
	// 只有本人可撤销，管理员也不例外
	if rec.UserID != p.UserID {
		return ErrForbidden
	}
	if !rec.IsCancellation() {
		return ErrRecordKindMismatch
	}

	slot, err := s.recordSlot(rec)
	if err != nil {
		return err
	}
	if !(mealslot.CutoffRule{}).Allows(slot, s.now()) {
		return ErrCutoffPassed
	}

	if err := s.deleteRecord(ctx, rec.RecordID); err != nil {
		return err
	}

	s.audit.Record(ctx, p.UserID, model.ActionUncancelMeal,
		fmt.Sprintf("恢复 %s %s", slot.Date, slot.Meal.Label()), rec.RecordID)
	return nil
}

// ═══════════════════════════════════════════════════════════
// AddGuestPortions — 加餐登记
// ═══════════════════════════════════════════════════════════

func (s *ledgerService) AddGuestPortions(ctx context.Context, p dto.Principal, req *dto.GuestRegistrationRequest) (res *dto.AttendanceRecordResponse, err error) {
	ctx, span := tracer.Start(ctx, "LedgerService.AddGuestPortions")
	defer span.End()
	defer func() { observeLedger(span, "add_guest", err) }()

	guestName := strings.TrimSpace(req.GuestName)
	if guestName == "" {
		return nil, fmt.Errorf("%w: 客人姓名不能为空", ErrInvalidInput)
	}
	if req.GuestCount < 1 {
		return nil, fmt.Errorf("%w: 加餐份数至少为 1", ErrInvalidInput)
	}
	slot, err := s.resolveSlot(req.MealDate, req.MealType)
	if err != nil {
		return nil, err
	}

	ownerID := p.UserID
	if req.UserID != "" && req.UserID != p.UserID {
		if !p.IsStaff() {
			return nil, ErrForbidden
		}
		if _, err := s.repo.User.GetByID(ctx, req.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: 登记对象不存在", ErrInvalidInput)
			}
			s.logger.Error("查询登记对象失败", zap.String("user_id", req.UserID), zap.Error(err))
			return nil, err
		}
		ownerID = req.UserID
	}

	rec := &model.AttendanceRecord{
		UserID:       ownerID,
		MealDate:     slot.Date,
		MealType:     string(slot.Meal),
		Kind:         model.RecordKindGuestAddition,
		GuestName:    guestName,
		GuestCount:   req.GuestCount,
		GuestReason:  strings.TrimSpace(req.GuestReason),
		RegisteredBy: p.UserID,
	}
	if err := s.repo.Attendance.Create(ctx, rec); err != nil {
		s.logger.Error("创建加餐记录失败", zap.String("user_id", ownerID), zap.String("slot", slot.ID()), zap.Error(err))
		return nil, err
	}

	s.audit.Record(ctx, p.UserID, model.ActionRegisterGuestMeal,
		fmt.Sprintf("%s %s 加餐 %d 份（%s）", slot.Date, slot.Meal.Label(), rec.GuestCount, rec.GuestName), rec.RecordID)

	resp := toRecordResponse(rec)
	return &resp, nil
}

// ═══════════════════════════════════════════════════════════
// RemoveRegistration — 删除登记记录
// ═══════════════════════════════════════════════════════════

func (s *ledgerService) RemoveRegistration(ctx context.Context, p dto.Principal, recordID string) (err error) {
	ctx, span := tracer.Start(ctx, "LedgerService.RemoveRegistration")
	defer span.End()
	defer func() { observeLedger(span, "remove_registration", err) }()

	rec, err := s.getRecord(ctx, recordID)
	if err != nil {
		return err
	}
	owner := rec.UserID == p.UserID
	if !rec.IsCancellation() && rec.RegisteredBy == p.UserID {
		owner = true
	}
	if !owner {
		return ErrForbidden
	}

	slot, err := s.recordSlot(rec)
	if err != nil {
		return err
	}
	if !mealslot.RemovalRuleFor(rec.Kind, s.lead).Allows(slot, s.now()) {
		if rec.IsCancellation() {
			return ErrCutoffPassed
		}
		return ErrTooLateToCancel
	}

	if err := s.deleteRecord(ctx, rec.RecordID); err != nil {
		return err
	}

	s.audit.Record(ctx, p.UserID, model.ActionCancelRegistration,
		fmt.Sprintf("删除 %s %s 的%s记录", slot.Date, slot.Meal.Label(), kindLabel(rec.Kind)), rec.RecordID)
	return nil
}

// ═══════════════════════════════════════════════════════════
// ListMine — 个人记录
// ═══════════════════════════════════════════════════════════

func (s *ledgerService) ListMine(ctx context.Context, p dto.Principal, req *dto.MyRecordsRequest) ([]dto.AttendanceRecordResponse, error) {
	from, to := req.From, req.To
	if from == "" {
		from = s.cal.DateOf(s.now())
	}
	fromDate, err := s.cal.ParseDate(from)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if to == "" {
		to = fromDate.AddDate(0, 0, 6).Format(mealslot.DateLayout)
	}
	toDate, err := s.cal.ParseDate(to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if toDate.Before(fromDate) {
		return nil, fmt.Errorf("%w: 结束日期早于开始日期", ErrInvalidInput)
	}
	if toDate.Sub(fromDate) > maxListDays*24*time.Hour {
		return nil, fmt.Errorf("%w: 查询跨度不能超过 %d 天", ErrInvalidInput, maxListDays)
	}

	recs, err := s.repo.Attendance.ListByUser(ctx, p.UserID, from, to)
	if err != nil {
		s.logger.Error("查询个人用餐记录失败", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AttendanceRecordResponse, 0, len(recs))
	for i := range recs {
		result = append(result, toRecordResponse(&recs[i]))
	}
	return result, nil
}

// ── 内部辅助 ──

// resolveSlot 校验日期与餐次，返回对应的虚拟餐次
func (s *ledgerService) resolveSlot(date, mealType string) (mealslot.Slot, error) {
	meal, err := mealslot.ParseMealType(mealType)
	if err != nil {
		return mealslot.Slot{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	slot, err := s.cal.Slot(date, meal)
	if err != nil {
		return mealslot.Slot{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return slot, nil
}

// recordSlot 已入库记录的餐次；入库数据非法属于内部错误
func (s *ledgerService) recordSlot(rec *model.AttendanceRecord) (mealslot.Slot, error) {
	slot, err := s.cal.Slot(rec.MealDate, mealslot.MealType(rec.MealType))
	if err != nil {
		s.logger.Error("记录餐次数据异常", zap.String("record_id", rec.RecordID), zap.Error(err))
		return mealslot.Slot{}, err
	}
	return slot, nil
}

func (s *ledgerService) getRecord(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	rec, err := s.repo.Attendance.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		s.logger.Error("查询用餐记录失败", zap.String("record_id", id), zap.Error(err))
		return nil, err
	}
	return rec, nil
}

func (s *ledgerService) deleteRecord(ctx context.Context, id string) error {
	if err := s.repo.Attendance.Delete(ctx, id); err != nil {
		// 并发删除：另一请求已先删除
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		s.logger.Error("删除用餐记录失败", zap.String("record_id", id), zap.Error(err))
		return err
	}
	return nil
}

func kindLabel(kind string) string {
	if kind == model.RecordKindCancellation {
		return "取消"
	}
	return "加餐"
}

// observeLedger 记录写操作结果：ok、业务拒绝（rejected）或内部错误（error）
func observeLedger(span trace.Span, op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case isLedgerRejection(err):
		result = "rejected"
	default:
		result = "error"
		span.RecordError(err)
	}
	span.SetAttributes(attribute.String("ledger.result", result))
	metrics.LedgerOperationsTotal.WithLabelValues(op, result).Inc()
}

func isLedgerRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrCutoffPassed, ErrAlreadyCancelled, ErrRecordNotFound,
		ErrForbidden, ErrRecordKindMismatch, ErrTooLateToCancel,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func toRecordResponse(rec *model.AttendanceRecord) dto.AttendanceRecordResponse {
	resp := dto.AttendanceRecordResponse{
		ID:           rec.RecordID,
		SlotID:       rec.MealDate + "-" + rec.MealType,
		UserID:       rec.UserID,
		MealDate:     rec.MealDate,
		MealType:     rec.MealType,
		Kind:         rec.Kind,
		GuestName:    rec.GuestName,
		GuestCount:   rec.GuestCount,
		GuestReason:  rec.GuestReason,
		RegisteredBy: rec.RegisteredBy,
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if rec.User != nil {
		resp.User = toUserBrief(rec.User)
	}
	if rec.Registrar != nil {
		resp.Registrar = toUserBrief(rec.Registrar)
	}
	return resp
}

func toUserBrief(u *model.User) *dto.UserBrief {
	return &dto.UserBrief{ID: u.ID, FullName: u.FullName}
}
