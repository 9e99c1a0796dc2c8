package delivery

import (
	"context"
	"errors"

	"marketplaceDelivery/internal/logging"
	"marketplaceDelivery/models"
	"marketplaceDelivery/repository"
)

// ItemStatusInput is a vendor's status update for one order item.
type ItemStatusInput struct {
	ItemID   string `validate:"required"`
	Status   string `validate:"required,oneof=pending confirmed processing packed ready_for_pickup cancelled returned"`
	Priority string `validate:"omitempty,oneof=low normal high urgent"`
}

// ItemStatusResult reports the item update and, when the item became packed, the
// allocation it triggered.
type ItemStatusResult struct {
	ItemID          string             `json:"item_id"`
	Status          models.OrderStatus `json:"status"`
	Allocation      *AllocationResult  `json:"allocation,omitempty"`
	AllocationError string             `json:"allocation_error,omitempty"`
}

// UpdateItemStatus writes an item status through the fallback writer: a targeted
// update, then the update_order_item_status procedure, then a full record rewrite.
// When the item becomes packed and auto-assign is enabled the order is handed to
// delivery; an allocation failure is reported in the result without undoing the write.
func (s *Service) UpdateItemStatus(ctx context.Context, in ItemStatusInput) (res *ItemStatusResult, err error) {
	defer func() { observe(ctx, "update_item_status", err) }()
	if err := validate(&in); err != nil {
		return nil, err
	}
	status := models.OrderStatus(in.Status)

	err = s.writer.Write(ctx, "update_item_status",
		WriteStep{Name: "item_status.targeted", Run: func(ctx context.Context) error {
			return s.repos.Items.UpdateStatus(ctx, in.ItemID, status)
		}},
		WriteStep{Name: "item_status.procedure", Run: func(ctx context.Context) error {
			return s.repos.Items.UpdateStatusProc(ctx, in.ItemID, status)
		}},
		WriteStep{Name: "item_status.full_upsert", Run: func(ctx context.Context) error {
			it, err := s.repos.Items.GetByID(ctx, in.ItemID)
			if err != nil {
				return err
			}
			if it == nil {
				return repository.ErrNotFound
			}
			it.Status = status
			return s.repos.Items.Upsert(ctx, it)
		}},
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, wrapError(KindNotFound, "order item not found", err)
		}
		return nil, storeError("update item status", err)
	}

	res = &ItemStatusResult{ItemID: in.ItemID, Status: status}
	if status != models.OrderStatusPacked {
		return res, nil
	}
	it, err := s.repos.Items.GetByID(ctx, in.ItemID)
	if err != nil || it == nil {
		res.AllocationError = "order item could not be reloaded for allocation"
		logging.Ctx(ctx).Warn().Err(err).Str("item_id", in.ItemID).Msg("auto-assign skipped")
		return res, nil
	}
	s.advanceOrderToPacked(ctx, it.OrderID)
	if !s.cfg.AutoAssign {
		return res, nil
	}
	alloc, aerr := s.CreateAssignmentFromOrder(ctx, CreateAssignmentInput{
		OrderItemID: it.ID,
		OrderID:     it.OrderID,
		VendorID:    it.VendorID,
		Priority:    in.Priority,
	})
	switch {
	case aerr == nil:
		res.Allocation = alloc
	case KindOf(aerr) == KindAlreadyAssigned:
	default:
		var de *Error
		if errors.As(aerr, &de) {
			res.AllocationError = de.Message
		} else {
			res.AllocationError = aerr.Error()
		}
	}
	return res, nil
}

// advanceOrderToPacked moves an order that is still being prepared to packed once
// every one of its items is packed. Failures are logged; the item write stands.
func (s *Service) advanceOrderToPacked(ctx context.Context, orderID string) {
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if err != nil || order == nil {
		return
	}
	switch order.Status {
	case models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusProcessing:
	default:
		return
	}
	items, err := s.repos.Items.ListByOrder(ctx, orderID)
	if err != nil || len(items) == 0 {
		return
	}
	for _, it := range items {
		if it.Status != models.OrderStatusPacked {
			return
		}
	}
	if err := s.repos.Orders.UpdateStatus(ctx, orderID, models.OrderStatusPacked, actorFrom(ctx)); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("order_id", orderID).Msg("order not advanced to packed")
	}
}
