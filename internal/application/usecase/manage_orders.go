package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/order-service/internal/application/port"
	"github.com/dreschagin/order-service/internal/domain/entity"
	"github.com/dreschagin/order-service/internal/domain/repository"
	"github.com/dreschagin/order-service/pkg/logger"
)

// ManageOrdersUseCase управляет заказами и публикует события их жизненного цикла
type ManageOrdersUseCase struct {
	repository repository.OrderRepository
	publisher  port.EventPublisher
	logger     *logger.Logger
}

// NewManageOrdersUseCase создает use case. publisher может быть nil
func NewManageOrdersUseCase(
	repository repository.OrderRepository,
	publisher port.EventPublisher,
	logger *logger.Logger,
) *ManageOrdersUseCase {
	return &ManageOrdersUseCase{
		repository: repository,
		publisher:  publisher,
		logger:     logger,
	}
}

// List возвращает все не удаленные заказы
func (uc *ManageOrdersUseCase) List(ctx context.Context) ([]*entity.Order, error) {
	orders, err := uc.repository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Get возвращает заказ по идентификатору
func (uc *ManageOrdersUseCase) Get(ctx context.Context, id int64) (*entity.Order, error) {
	order, err := uc.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// Create проверяет и сохраняет новый заказ
func (uc *ManageOrdersUseCase) Create(ctx context.Context, details entity.OrderDetails) (*entity.Order, error) {
	order, err := entity.NewOrder(details)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := uc.repository.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	uc.publish(ctx, port.SubjectOrderCreated, order)
	return order, nil
}

// Update заменяет данные существующего заказа
func (uc *ManageOrdersUseCase) Update(ctx context.Context, id int64, details entity.OrderDetails) (*entity.Order, error) {
	order, err := uc.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := order.Update(details); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := uc.repository.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	uc.publish(ctx, port.SubjectOrderUpdated, order)
	return order, nil
}

// Delete помечает заказ удаленным
func (uc *ManageOrdersUseCase) Delete(ctx context.Context, id int64) error {
	if err := uc.repository.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	uc.publish(ctx, port.SubjectOrderDeleted, &entity.Order{ID: id})
	return nil
}

// publish отправляет событие; ошибка брокера не влияет на результат операции
func (uc *ManageOrdersUseCase) publish(ctx context.Context, subject string, order *entity.Order) {
	if uc.publisher == nil {
		return
	}

	event := port.OrderEvent{
		OrderID:    order.ID,
		Item:       order.Item,
		Quantity:   order.Quantity,
		Amount:     order.Amount,
		OccurredAt: time.Now().UTC(),
	}
	if err := uc.publisher.PublishEvent(ctx, subject, event); err != nil {
		uc.logger.Warn("Failed to publish order event",
			"subject", subject,
			"order_id", order.ID,
			"error", err.Error())
	}
}
