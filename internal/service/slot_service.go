package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"eating-management/backend/internal/dto"
	"eating-management/backend/internal/mealslot"
)

const (
	defaultSlotDays = 7
	// slotDuration 日历事件时长，仅用于订阅展示
	slotDuration = time.Hour
)

// SlotService 餐次日历业务接口
type SlotService interface {
	// List 从今天起 days 天的餐次（days<=0 取默认 7 天）
	List(ctx context.Context, days int) ([]dto.SlotResponse, error)
	// ICS 同一组餐次渲染为 iCalendar 订阅
	ICS(ctx context.Context, days int) (string, error)
}

type slotService struct {
	cal     *mealslot.Calendar
	maxDays int
	now     Clock
}

// NewSlotService 创建 SlotService 实例
func NewSlotService(cal *mealslot.Calendar, maxDays int, now Clock) SlotService {
	if maxDays <= 0 {
		maxDays = 31
	}
	return &slotService{cal: cal, maxDays: maxDays, now: now}
}

func (s *slotService) generate(days int) ([]mealslot.Slot, error) {
	if days <= 0 {
		days = defaultSlotDays
	}
	if days > s.maxDays {
		return nil, fmt.Errorf("%w: days 不能超过 %d", ErrInvalidInput, s.maxDays)
	}
	return s.cal.Generate(s.now(), days), nil
}

func (s *slotService) List(_ context.Context, days int) ([]dto.SlotResponse, error) {
	slots, err := s.generate(days)
	if err != nil {
		return nil, err
	}
	result := make([]dto.SlotResponse, 0, len(slots))
	for _, slot := range slots {
		result = append(result, toSlotResponse(slot))
	}
	return result, nil
}

func (s *slotService) ICS(_ context.Context, days int) (string, error) {
	slots, err := s.generate(days)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//eating-management//meal slots//EN")
	cal.SetXWRCalName("用餐日历")
	cal.SetXWRTimezone(s.cal.Location().String())

	stamp := s.now().UTC()
	for _, slot := range slots {
		event := cal.AddEvent(slot.ID() + "@eating-management")
		event.SetDtStampTime(stamp)
		event.SetStartAt(slot.StartsAt)
		event.SetEndAt(slot.StartsAt.Add(slotDuration))
		event.SetSummary(slot.Meal.Label())
		event.SetDescription(fmt.Sprintf("取消截止 %s", slot.CutoffAt.Format("2006-01-02 15:04")))
	}
	return cal.Serialize(), nil
}

func toSlotResponse(slot mealslot.Slot) dto.SlotResponse {
	return dto.SlotResponse{
		ID:       slot.ID(),
		Date:     slot.Date,
		MealType: string(slot.Meal),
		Label:    slot.Meal.Label(),
		StartsAt: slot.StartsAt.Format(time.RFC3339),
		CutoffAt: slot.CutoffAt.Format(time.RFC3339),
	}
}
