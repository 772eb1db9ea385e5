package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eating-management/backend/internal/dto"
	"eating-management/backend/internal/service"
	"eating-management/backend/pkg/response"
)

// MealHandler 用餐模块 HTTP 处理器
type MealHandler struct {
	slotSvc   service.SlotService
	ledgerSvc service.LedgerService
	aggSvc    service.AggregatorService
	logger    *zap.Logger
}

// NewMealHandler 创建 MealHandler
func NewMealHandler(slotSvc service.SlotService, ledgerSvc service.LedgerService, aggSvc service.AggregatorService, logger *zap.Logger) *MealHandler {
	return &MealHandler{slotSvc: slotSvc, ledgerSvc: ledgerSvc, aggSvc: aggSvc, logger: logger}
}

// ListSlots 未来若干天的餐次
// GET /api/v1/meals/slots?days=7
func (h *MealHandler) ListSlots(c *gin.Context) {
	var req dto.SlotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	slots, err := h.slotSvc.List(c.Request.Context(), req.Days)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.OK(c, slots)
}

// SlotsICS 餐次日历订阅
// GET /api/v1/meals/slots.ics?days=7
func (h *MealHandler) SlotsICS(c *gin.Context) {
	var req dto.SlotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	body, err := h.slotSvc.ICS(c.Request.Context(), req.Days)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// Cancel 取消用餐
// POST /api/v1/meals/cancellations
func (h *MealHandler) Cancel(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.CancelMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	rec, err := h.ledgerSvc.Cancel(c.Request.Context(), p, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Created(c, rec)
}

// Uncancel 撤销取消
// DELETE /api/v1/meals/cancellations/:id
func (h *MealHandler) Uncancel(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.ledgerSvc.Uncancel(c.Request.Context(), p, c.Param("id")); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.OK(c, nil)
}

// AddGuests 登记加餐
// POST /api/v1/meals/guest-registrations
func (h *MealHandler) AddGuests(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.GuestRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	rec, err := h.ledgerSvc.AddGuestPortions(c.Request.Context(), p, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.Created(c, rec)
}

// RemoveRegistration 删除记录（取消或加餐）
// DELETE /api/v1/meals/registrations/:id
func (h *MealHandler) RemoveRegistration(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.ledgerSvc.RemoveRegistration(c.Request.Context(), p, c.Param("id")); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.OK(c, nil)
}

// ListMine 本人相关记录
// GET /api/v1/meals/registrations/me?from=&to=
func (h *MealHandler) ListMine(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.MyRecordsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.ledgerSvc.ListMine(c.Request.Context(), p, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// Summary 单餐次汇总（厨房备餐）
// GET /api/v1/meals/summary?date=&meal_type=
func (h *MealHandler) Summary(c *gin.Context) {
	var req dto.SlotSummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "date 与 meal_type 不能为空")
		return
	}

	sum, err := h.aggSvc.SummarizeSlot(c.Request.Context(), req.Date, req.MealType)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	response.OK(c, sum)
}
