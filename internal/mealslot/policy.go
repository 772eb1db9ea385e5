package mealslot

import "time"

// Rule 餐次时间窗规则，每种记录类型对应一条具名规则
type Rule interface {
	Name() string
	Allows(slot Slot, now time.Time) bool
}

// CutoffRule 截止时刻规则：now 不晚于截止时刻时允许（取消 / 撤销取消共用）
type CutoffRule struct{}

func (CutoffRule) Name() string { return "cutoff" }

func (CutoffRule) Allows(slot Slot, now time.Time) bool {
	return !now.After(slot.CutoffAt)
}

// LeadTimeRule 开餐前置时长规则：距开餐严格大于 Lead 时允许（删除加餐登记）
type LeadTimeRule struct {
	Lead time.Duration
}

func (r LeadTimeRule) Name() string { return "lead_time" }

func (r LeadTimeRule) Allows(slot Slot, now time.Time) bool {
	return slot.StartsAt.Sub(now) > r.Lead
}

// 记录类型，与 model.RecordKind* 取值一致
const (
	KindCancellation  = "cancellation"
	KindGuestAddition = "guest_addition"
)

// RemovalRuleFor 返回删除某类记录时适用的规则
// 取消记录的删除即撤销取消，沿用截止时刻规则；加餐登记按开餐前置时长
func RemovalRuleFor(kind string, lead time.Duration) Rule {
	if kind == KindCancellation {
		return CutoffRule{}
	}
	return LeadTimeRule{Lead: lead}
}
