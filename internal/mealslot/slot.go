// Package mealslot 组织用餐日历：按需生成虚拟餐次（午餐 / 晚餐），不落库。
//
// 所有日期、开餐时刻与截止时刻均在组织本地时区计算，
// 存储层只保存日历日字符串（YYYY-MM-DD），避免 UTC 日界线与本地截止时间混用。
package mealslot

import (
	"errors"
	"fmt"
	"time"

	"eating-management/backend/config"
)

// DateLayout 日历日格式
const DateLayout = "2006-01-02"

// MealType 餐次类型
type MealType string

const (
	Lunch  MealType = "lunch"
	Dinner MealType = "dinner"
)

// MealTypes 每日餐次，按时间顺序排列
var MealTypes = []MealType{Lunch, Dinner}

var (
	ErrInvalidMealType = errors.New("无效的餐次类型")
	ErrInvalidDate     = errors.New("无效的日期")
	ErrInvalidClock    = errors.New("无效的时刻格式")
)

// ParseMealType 解析餐次类型
func ParseMealType(s string) (MealType, error) {
	switch MealType(s) {
	case Lunch, Dinner:
		return MealType(s), nil
	default:
		return "", ErrInvalidMealType
	}
}

// Label 餐次中文名
func (m MealType) Label() string {
	if m == Lunch {
		return "午餐"
	}
	return "晚餐"
}

// ClockTime 一天中的时刻（本地墙上时间）
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock 解析 "HH:MM"
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Slot 虚拟餐次，由 (Date, Meal) 唯一标识
type Slot struct {
	Date     string    `json:"date"`
	Meal     MealType  `json:"meal_type"`
	StartsAt time.Time `json:"starts_at"`
	CutoffAt time.Time `json:"cutoff_at"`
}

// ID 餐次标识，例如 2024-06-10-lunch
func (s Slot) ID() string {
	return s.Date + "-" + string(s.Meal)
}

// Calendar 组织用餐日历
type Calendar struct {
	loc     *time.Location
	starts  map[MealType]ClockTime
	cutoffs map[MealType]ClockTime
}

// NewCalendar 创建用餐日历
func NewCalendar(loc *time.Location, lunch, lunchCutoff, dinner, dinnerCutoff ClockTime) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{
		loc:     loc,
		starts:  map[MealType]ClockTime{Lunch: lunch, Dinner: dinner},
		cutoffs: map[MealType]ClockTime{Lunch: lunchCutoff, Dinner: dinnerCutoff},
	}
}

// NewCalendarFromConfig 根据配置创建用餐日历
func NewCalendarFromConfig(cfg *config.MealConfig) (*Calendar, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}
	clocks := make([]ClockTime, 0, 4)
	for _, s := range []string{cfg.LunchTime, cfg.LunchCutoff, cfg.DinnerTime, cfg.DinnerCutoff} {
		ct, err := ParseClock(s)
		if err != nil {
			return nil, err
		}
		clocks = append(clocks, ct)
	}
	return NewCalendar(loc, clocks[0], clocks[1], clocks[2], clocks[3]), nil
}

// Location 组织时区
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// DateOf 返回某一时刻在组织时区下的日历日
func (c *Calendar) DateOf(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// ParseDate 校验并解析日历日（组织时区零点）
func (c *Calendar) ParseDate(date string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return d, nil
}

// Slot 返回指定日期与餐次的虚拟餐次
func (c *Calendar) Slot(date string, meal MealType) (Slot, error) {
	if _, err := ParseMealType(string(meal)); err != nil {
		return Slot{}, err
	}
	d, err := c.ParseDate(date)
	if err != nil {
		return Slot{}, err
	}
	return c.slotOn(d.Year(), d.Month(), d.Day(), meal), nil
}

func (c *Calendar) slotOn(year int, month time.Month, day int, meal MealType) Slot {
	start := c.starts[meal]
	cutoff := c.cutoffs[meal]
	startsAt := time.Date(year, month, day, start.Hour, start.Minute, 0, 0, c.loc)
	return Slot{
		Date:     startsAt.Format(DateLayout),
		Meal:     meal,
		StartsAt: startsAt,
		CutoffAt: time.Date(year, month, day, cutoff.Hour, cutoff.Minute, 0, 0, c.loc),
	}
}

// Generate 从 start 所在日历日起生成 days 天的餐次，共 2×days 个，按时间顺序
func (c *Calendar) Generate(start time.Time, days int) []Slot {
	if days <= 0 {
		return []Slot{}
	}
	local := start.In(c.loc)
	slots := make([]Slot, 0, days*len(MealTypes))
	for i := 0; i < days; i++ {
		for _, meal := range MealTypes {
			slots = append(slots, c.slotOn(local.Year(), local.Month(), local.Day()+i, meal))
		}
	}
	return slots
}

// MonthSlots 生成某月全部餐次（2×当月天数）
func (c *Calendar) MonthSlots(year int, month time.Month) []Slot {
	first := time.Date(year, month, 1, 0, 0, 0, 0, c.loc)
	return c.Generate(first, DaysInMonth(year, month))
}

// MonthRange 返回某月首尾日历日（闭区间），用于存储层范围查询
func (c *Calendar) MonthRange(year int, month time.Month) (from, to string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, c.loc)
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout)
}

// SlotsStartingIn 返回开餐时刻落在 [from, to) 内的餐次
func (c *Calendar) SlotsStartingIn(from, to time.Time) []Slot {
	if !from.Before(to) {
		return nil
	}
	// 从前一天开始覆盖，避免跨零点窗口漏算
	begin := from.In(c.loc).AddDate(0, 0, -1)
	days := int(to.Sub(from).Hours()/24) + 3

	var result []Slot
	for _, s := range c.Generate(begin, days) {
		if !s.StartsAt.Before(from) && s.StartsAt.Before(to) {
			result = append(result, s)
		}
	}
	return result
}

// DaysInMonth 当月天数
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
