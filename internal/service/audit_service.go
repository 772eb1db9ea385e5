package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"eating-management/backend/internal/dto"
	"eating-management/backend/internal/model"
	"eating-management/backend/internal/repository"
	"eating-management/backend/pkg/metrics"
)

// AuditSink 操作审计写入端
// 写入失败只记录日志，不回滚已提交的业务变更
type AuditSink interface {
	Record(ctx context.Context, userID, action, detail, recordID string)
}

// AuditService 操作日志业务接口
type AuditService interface {
	AuditSink
	List(ctx context.Context, req *dto.ActivityLogListRequest) ([]dto.ActivityLogResponse, int64, error)
}

type auditService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAuditService 创建 AuditService 实例
func NewAuditService(repo *repository.Repository, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, logger: logger}
}

func (s *auditService) Record(ctx context.Context, userID, action, detail, recordID string) {
	log := &model.ActivityLog{
		UserID: userID,
		Action: action,
		Detail: detail,
	}
	if recordID != "" {
		log.RecordID = &recordID
	}
	if err := s.repo.ActivityLog.Create(ctx, log); err != nil {
		metrics.AuditFailuresTotal.Inc()
		s.logger.Error("写入操作日志失败",
			zap.String("user_id", userID),
			zap.String("action", action),
			zap.String("record_id", recordID),
			zap.Error(err),
		)
	}
}

func (s *auditService) List(ctx context.Context, req *dto.ActivityLogListRequest) ([]dto.ActivityLogResponse, int64, error) {
	filter := repository.ActivityLogFilter{
		UserID: req.UserID,
		Action: req.Action,
	}
	logs, total, err := s.repo.ActivityLog.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询操作日志失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ActivityLogResponse, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		item := dto.ActivityLogResponse{
			ID:        l.LogID,
			Action:    l.Action,
			Detail:    l.Detail,
			CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		}
		if l.RecordID != nil {
			item.RecordID = *l.RecordID
		}
		if l.User != nil {
			item.User = toUserBrief(l.User)
		}
		result = append(result, item)
	}
	return result, total, nil
}
