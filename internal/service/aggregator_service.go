package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"eating-management/backend/config"
	"eating-management/backend/internal/dto"
	"eating-management/backend/internal/mealslot"
	"eating-management/backend/internal/model"
	"eating-management/backend/internal/repository"
)

// AggregatorService 用餐统计业务接口（只读）
type AggregatorService interface {
	// SummarizeSlot 单餐次汇总：用餐人数 = 成员数 - 已取消成员数 + 加餐份数
	SummarizeSlot(ctx context.Context, date, mealType string) (*dto.SlotSummaryResponse, error)
	// SummarizePeriod 月度统计；userID 非空时只统计该用户
	SummarizePeriod(ctx context.Context, year, month int, userID string) (*dto.PeriodReportResponse, error)
	// ExportReport 月度结算表，金额 = 用餐次数 × 单价
	ExportReport(ctx context.Context, year, month int, userID string) (*dto.ReportTable, error)
}

type aggregatorService struct {
	repo   *repository.Repository
	cal    *mealslot.Calendar
	report *config.ReportConfig
	logger *zap.Logger
}

// NewAggregatorService 创建 AggregatorService 实例
func NewAggregatorService(
	repo *repository.Repository,
	cal *mealslot.Calendar,
	report *config.ReportConfig,
	logger *zap.Logger,
) AggregatorService {
	return &aggregatorService{
		repo:   repo,
		cal:    cal,
		report: report,
		logger: logger,
	}
}

// ═══════════════════════════════════════════════════════════
// SummarizeSlot — 单餐次汇总（厨房备餐）
// ═══════════════════════════════════════════════════════════

func (s *aggregatorService) SummarizeSlot(ctx context.Context, date, mealType string) (*dto.SlotSummaryResponse, error) {
	ctx, span := tracer.Start(ctx, "AggregatorService.SummarizeSlot")
	defer span.End()

	meal, err := mealslot.ParseMealType(mealType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	slot, err := s.cal.Slot(date, meal)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	span.SetAttributes(attribute.String("slot.id", slot.ID()))

	members, err := s.repo.User.ListActiveMembers(ctx)
	if err != nil {
		s.logger.Error("查询成员失败", zap.Error(err))
		return nil, err
	}
	// 按日历日与餐次精确匹配，不比较时刻
	recs, err := s.repo.Attendance.ListBySlot(ctx, slot.Date, string(slot.Meal))
	if err != nil {
		s.logger.Error("查询餐次记录失败", zap.String("slot", slot.ID()), zap.Error(err))
		return nil, err
	}

	cancelled := make(map[string]bool)
	summary := &dto.SlotSummaryResponse{
		Slot:           toSlotResponse(slot),
		TotalMembers:   len(members),
		Eaters:         []dto.UserBrief{},
		Cancellers:     []dto.UserBrief{},
		GuestBreakdown: []dto.GuestBreakdownItem{},
	}
	for i := range recs {
		rec := &recs[i]
		if rec.IsCancellation() {
			cancelled[rec.UserID] = true
			continue
		}
		item := dto.GuestBreakdownItem{
			RecordID:    rec.RecordID,
			GuestName:   rec.GuestName,
			GuestCount:  rec.GuestCount,
			GuestReason: rec.GuestReason,
		}
		if rec.User != nil {
			item.User = toUserBrief(rec.User)
		}
		if rec.Registrar != nil {
			item.RegisteredBy = toUserBrief(rec.Registrar)
		}
		summary.GuestBreakdown = append(summary.GuestBreakdown, item)
		summary.TotalGuestPortions += rec.GuestCount
	}

	// 非成员的取消记录不参与扣减
	for i := range members {
		brief := *toUserBrief(&members[i])
		if cancelled[members[i].ID] {
			summary.Cancellers = append(summary.Cancellers, brief)
		} else {
			summary.Eaters = append(summary.Eaters, brief)
		}
	}
	summary.TotalCancelled = len(summary.Cancellers)
	summary.TotalEating = summary.TotalMembers - summary.TotalCancelled + summary.TotalGuestPortions

	return summary, nil
}

// ═══════════════════════════════════════════════════════════
// SummarizePeriod — 月度统计
// ═══════════════════════════════════════════════════════════

// memberTally 单个成员的月度计数
type memberTally struct {
	user          model.User
	attended      int
	cancelled     int
	guestPortions int
}

func (s *aggregatorService) SummarizePeriod(ctx context.Context, year, month int, userID string) (*dto.PeriodReportResponse, error) {
	ctx, span := tracer.Start(ctx, "AggregatorService.SummarizePeriod")
	defer span.End()

	tallies, slotCount, err := s.tally(ctx, year, month, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.PeriodReportResponse{
		Year:         year,
		Month:        month,
		DaysInMonth:  mealslot.DaysInMonth(year, time.Month(month)),
		SlotsInMonth: slotCount,
		Rows:         make([]dto.PeriodReportRow, 0, len(tallies)),
	}
	for i := range tallies {
		t := &tallies[i]
		resp.Rows = append(resp.Rows, dto.PeriodReportRow{
			User:           *toUserBrief(&t.user),
			AttendedCount:  t.attended,
			CancelledCount: t.cancelled,
			GuestPortions:  t.guestPortions,
			ComputedTotal:  t.attended + t.guestPortions,
		})
	}
	return resp, nil
}

// ═══════════════════════════════════════════════════════════
// ExportReport — 月度结算表
// ═══════════════════════════════════════════════════════════

func (s *aggregatorService) ExportReport(ctx context.Context, year, month int, userID string) (*dto.ReportTable, error) {
	ctx, span := tracer.Start(ctx, "AggregatorService.ExportReport")
	defer span.End()

	tallies, _, err := s.tally(ctx, year, month, userID)
	if err != nil {
		return nil, err
	}

	table := &dto.ReportTable{
		Period:    fmt.Sprintf("%04d-%02d", year, month),
		UnitPrice: s.report.UnitPrice,
		Currency:  s.report.Currency,
		Rows:      make([]dto.ReportTableRow, 0, len(tallies)),
	}
	for i := range tallies {
		t := &tallies[i]
		amount := int64(t.attended) * s.report.UnitPrice
		table.Rows = append(table.Rows, dto.ReportTableRow{
			Name:           t.user.FullName,
			Phone:          t.user.Phone,
			Email:          t.user.Email,
			AttendedCount:  t.attended,
			CancelledCount: t.cancelled,
			AmountDue:      amount,
		})
		table.TotalAmount += amount
	}
	return table, nil
}

// tally 以当月生成的全部餐次为全集，逐成员扣减取消、累加本人名下加餐份数
// attended = 2 × 当月天数 - 取消次数
func (s *aggregatorService) tally(ctx context.Context, year, month int, userID string) ([]memberTally, int, error) {
	if month < 1 || month > 12 || year < 2000 || year > 2100 {
		return nil, 0, fmt.Errorf("%w: 年月无效 %d-%d", ErrInvalidInput, year, month)
	}

	var members []model.User
	if userID != "" {
		user, err := s.repo.User.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, ErrRecordNotFound
			}
			s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
			return nil, 0, err
		}
		members = []model.User{*user}
	} else {
		var err error
		members, err = s.repo.User.ListActiveMembers(ctx)
		if err != nil {
			s.logger.Error("查询成员失败", zap.Error(err))
			return nil, 0, err
		}
	}

	slots := s.cal.MonthSlots(year, time.Month(month))
	universe := make(map[string]bool, len(slots))
	for _, slot := range slots {
		universe[slot.ID()] = true
	}

	from, to := s.cal.MonthRange(year, time.Month(month))
	recs, err := s.repo.Attendance.ListByDateRange(ctx, from, to)
	if err != nil {
		s.logger.Error("查询月度记录失败", zap.String("from", from), zap.String("to", to), zap.Error(err))
		return nil, 0, err
	}

	// 同一餐次重复的取消记录只计一次
	cancelledSlots := make(map[string]map[string]bool)
	guestPortions := make(map[string]int)
	for i := range recs {
		rec := &recs[i]
		slotID := rec.MealDate + "-" + rec.MealType
		if !universe[slotID] {
			continue
		}
		if rec.IsCancellation() {
			if cancelledSlots[rec.UserID] == nil {
				cancelledSlots[rec.UserID] = make(map[string]bool)
			}
			cancelledSlots[rec.UserID][slotID] = true
			continue
		}
		guestPortions[rec.UserID] += rec.GuestCount
	}

	tallies := make([]memberTally, 0, len(members))
	for _, m := range members {
		cancelled := len(cancelledSlots[m.ID])
		tallies = append(tallies, memberTally{
			user:          m,
			attended:      len(slots) - cancelled,
			cancelled:     cancelled,
			guestPortions: guestPortions[m.ID],
		})
	}
	return tallies, len(slots), nil
}
