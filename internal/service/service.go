package service

import (
	"go.uber.org/zap"

	"daypart-hub/config"
	"daypart-hub/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	OrgNode OrgNodeService
	Daypart DaypartService
	Export  ExportService
}

// NewService 创建 Service 聚合；cache 可为 nil
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache ConfigCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		OrgNode: NewOrgNodeService(repo, logger),
		Daypart: NewDaypartService(repo, cache, &cfg.Resolver, logger),
		Export:  NewExportService(repo, &cfg.Resolver, logger),
	}
}
