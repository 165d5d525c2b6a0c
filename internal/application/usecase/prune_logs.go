package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/order-service/internal/application/port"
	"github.com/dreschagin/order-service/pkg/logger"
)

// PruneLogsUseCase удаляет из хранилища записи журнала с уровнем не выше порога
type PruneLogsUseCase struct {
	store     port.LogRetentionStore
	threshold logger.Level
	levels    []logger.Level
	observer  port.RetentionObserver
}

// NewPruneLogsUseCase создает use case очистки журнала. observer может быть nil
func NewPruneLogsUseCase(
	store port.LogRetentionStore,
	threshold logger.Level,
	observer port.RetentionObserver,
) (*PruneLogsUseCase, error) {
	if !threshold.Valid() {
		return nil, fmt.Errorf("invalid retention threshold: %w", logger.ErrUnknownLevel)
	}

	return &PruneLogsUseCase{
		store:     store,
		threshold: threshold,
		levels:    logger.AtOrBelow(threshold),
		observer:  observer,
	}, nil
}

// Threshold возвращает максимальный удаляемый уровень
func (uc *PruneLogsUseCase) Threshold() logger.Level {
	return uc.threshold
}

// Execute выполняет один проход очистки одним запросом и возвращает число удаленных строк
func (uc *PruneLogsUseCase) Execute(ctx context.Context) (int64, error) {
	deleted, err := uc.store.DeleteLevels(ctx, uc.levels)
	if err != nil {
		if uc.observer != nil {
			uc.observer.RetentionFailed()
		}
		return 0, fmt.Errorf("failed to prune logs at or below %s: %w", uc.threshold, err)
	}

	if uc.observer != nil {
		uc.observer.RetentionCompleted(deleted)
	}
	return deleted, nil
}
