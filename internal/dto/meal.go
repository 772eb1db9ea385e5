package dto

// ── 餐次 ──

// SlotListRequest 餐次列表查询参数
type SlotListRequest struct {
	Days int `form:"days" binding:"omitempty,min=1,max=31"`
}

// SlotResponse 虚拟餐次
type SlotResponse struct {
	ID       string `json:"id"` // 2024-06-10-lunch
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
	Label    string `json:"label"`
	StartsAt string `json:"starts_at"` // RFC3339，带组织时区偏移
	CutoffAt string `json:"cutoff_at"`
}

// ── 用餐记录 ──

// CancelMealRequest 取消用餐请求
type CancelMealRequest struct {
	MealDate string `json:"meal_date" binding:"required"`
	MealType string `json:"meal_type" binding:"required"`
}

// GuestRegistrationRequest 加餐登记请求
// UserID 为空时记在登记人名下；厨房与管理员可代他人登记
type GuestRegistrationRequest struct {
	MealDate    string `json:"meal_date"    binding:"required"`
	MealType    string `json:"meal_type"    binding:"required"`
	GuestName   string `json:"guest_name"   binding:"required,max=100"`
	GuestCount  int    `json:"guest_count"  binding:"required,min=1,max=500"`
	GuestReason string `json:"guest_reason" binding:"omitempty,max=255"`
	UserID      string `json:"user_id"      binding:"omitempty,max=36"`
}

// MyRecordsRequest 个人记录查询参数（闭区间，缺省为今天起 7 天）
type MyRecordsRequest struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// AttendanceRecordResponse 用餐记录响应
type AttendanceRecordResponse struct {
	ID           string     `json:"id"`
	SlotID       string     `json:"slot_id"`
	UserID       string     `json:"user_id"`
	MealDate     string     `json:"meal_date"`
	MealType     string     `json:"meal_type"`
	Kind         string     `json:"kind"`
	GuestName    string     `json:"guest_name,omitempty"`
	GuestCount   int        `json:"guest_count,omitempty"`
	GuestReason  string     `json:"guest_reason,omitempty"`
	RegisteredBy string     `json:"registered_by"`
	CreatedAt    string     `json:"created_at"`
	User         *UserBrief `json:"user,omitempty"`
	Registrar    *UserBrief `json:"registrar,omitempty"`
}

// ── 餐次汇总（厨房） ──

// SlotSummaryRequest 餐次汇总查询参数
type SlotSummaryRequest struct {
	Date     string `form:"date"      binding:"required"`
	MealType string `form:"meal_type" binding:"required"`
}

// GuestBreakdownItem 加餐明细
type GuestBreakdownItem struct {
	RecordID     string     `json:"record_id"`
	GuestName    string     `json:"guest_name"`
	GuestCount   int        `json:"guest_count"`
	GuestReason  string     `json:"guest_reason,omitempty"`
	User         *UserBrief `json:"user,omitempty"`
	RegisteredBy *UserBrief `json:"registered_by,omitempty"`
}

// SlotSummaryResponse 餐次汇总
// TotalEating = TotalMembers - TotalCancelled + TotalGuestPortions
type SlotSummaryResponse struct {
	Slot               SlotResponse         `json:"slot"`
	TotalMembers       int                  `json:"total_members"`
	TotalCancelled     int                  `json:"total_cancelled"`
	TotalGuestPortions int                  `json:"total_guest_portions"`
	TotalEating        int                  `json:"total_eating"`
	Eaters             []UserBrief          `json:"eaters"`
	Cancellers         []UserBrief          `json:"cancellers"`
	GuestBreakdown     []GuestBreakdownItem `json:"guest_breakdown"`
}
