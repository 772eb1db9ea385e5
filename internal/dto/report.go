package dto

// ── 月度报表 ──

// PeriodReportRequest 月度报表查询参数
type PeriodReportRequest struct {
	Year   int    `form:"year"    binding:"required,min=2000,max=2100"`
	Month  int    `form:"month"   binding:"required,min=1,max=12"`
	UserID string `form:"user_id" binding:"omitempty,max=36"`
}

// PeriodReportRow 成员月度统计
// ComputedTotal = AttendedCount + GuestPortions
type PeriodReportRow struct {
	User           UserBrief `json:"user"`
	AttendedCount  int       `json:"attended_count"`
	CancelledCount int       `json:"cancelled_count"`
	GuestPortions  int       `json:"guest_portions"`
	ComputedTotal  int       `json:"computed_total"`
}

// PeriodReportResponse 月度报表
type PeriodReportResponse struct {
	Year         int               `json:"year"`
	Month        int               `json:"month"`
	DaysInMonth  int               `json:"days_in_month"`
	SlotsInMonth int               `json:"slots_in_month"`
	Rows         []PeriodReportRow `json:"rows"`
}

// ReportTable 与渲染格式无关的报表，由导出器渲染为具体文件
type ReportTable struct {
	Period      string           `json:"period"` // 2024-06
	UnitPrice   int64            `json:"unit_price"`
	Currency    string           `json:"currency"`
	Rows        []ReportTableRow `json:"rows"`
	TotalAmount int64            `json:"total_amount"`
}

// ReportTableRow 报表行，AmountDue = AttendedCount × UnitPrice
type ReportTableRow struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	AttendedCount  int    `json:"attended_count"`
	CancelledCount int    `json:"cancelled_count"`
	AmountDue      int64  `json:"amount_due"`
}

// ── 操作日志 ──

// ActivityLogListRequest 操作日志查询参数
type ActivityLogListRequest struct {
	PaginationRequest
	UserID string `form:"user_id" binding:"omitempty,max=36"`
	Action string `form:"action"  binding:"omitempty,oneof=cancel_meal uncancel_meal register_guest_meal cancel_registration"`
}

// ActivityLogResponse 操作日志
type ActivityLogResponse struct {
	ID        string     `json:"id"`
	Action    string     `json:"action"`
	Detail    string     `json:"detail,omitempty"`
	RecordID  string     `json:"record_id,omitempty"`
	CreatedAt string     `json:"created_at"`
	User      *UserBrief `json:"user,omitempty"`
}
