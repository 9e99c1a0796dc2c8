package delivery

import "marketplaceDelivery/models"

// Delivery statuses shown to customers, vendors and partners.
const (
	StatusPreparing      = "preparing"
	StatusReadyForPickup = "ready_for_pickup"
	StatusAssigned       = "assigned"
	StatusAccepted       = "accepted"
	StatusPickedUp       = "picked_up"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
	StatusReturned       = "returned"
	StatusFailed         = "failed"
)

// MapStatus returns the display delivery status for an order and its current assignment.
// An active or delivered assignment decides the result; otherwise the order status does.
// Order statuses without a mapping are returned unchanged.
func MapStatus(order models.OrderStatus, assignment *models.AssignmentStatus) string {
	if assignment != nil {
		switch *assignment {
		case models.AssignmentStatusAssigned:
			return StatusAssigned
		case models.AssignmentStatusAccepted:
			return StatusAccepted
		case models.AssignmentStatusPickedUp:
			if order == models.OrderStatusOutForDelivery || order == models.OrderStatusShipped {
				return StatusOutForDelivery
			}
			return StatusPickedUp
		case models.AssignmentStatusDelivered:
			return StatusDelivered
		case models.AssignmentStatusFailed:
			if order == models.OrderStatusAssignedToDelivery {
				return StatusFailed
			}
		}
	}

	switch order {
	case models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusProcessing:
		return StatusPreparing
	case models.OrderStatusPacked, models.OrderStatusReadyForPickup:
		return StatusReadyForPickup
	case models.OrderStatusAssignedToDelivery:
		return StatusAssigned
	case models.OrderStatusPickedUp:
		return StatusPickedUp
	case models.OrderStatusShipped, models.OrderStatusOutForDelivery:
		return StatusOutForDelivery
	case models.OrderStatusDelivered:
		return StatusDelivered
	case models.OrderStatusCancelled:
		return StatusCancelled
	case models.OrderStatusReturned:
		return StatusReturned
	default:
		return string(order)
	}
}
