package delivery

import (
	"context"
	"time"

	"marketplaceDelivery/internal/logging"
	"marketplaceDelivery/models"
	"marketplaceDelivery/repository"
)

// Placeholders shown when a customer or vendor row cannot be joined.
const (
	PlaceholderCustomer = "Customer"
	PlaceholderVendor   = "Vendor Store"
)

// AvailableOrder is an unassigned order a partner may take.
type AvailableOrder struct {
	OrderID      string             `json:"order_id"`
	OrderNumber  string             `json:"order_number"`
	Status       models.OrderStatus `json:"status"`
	TotalAmount  float64            `json:"total_amount"`
	Pincode      string             `json:"pincode"`
	Address      models.Address     `json:"delivery_address"`
	CustomerName string             `json:"customer_name"`
	VendorName   string             `json:"vendor_name"`
	CreatedAt    time.Time          `json:"created_at"`
}

// MyOrder is one of a partner's in-progress deliveries.
type MyOrder struct {
	Assignment     *models.DeliveryAssignment `json:"assignment"`
	OrderNumber    string                     `json:"order_number"`
	OrderStatus    models.OrderStatus         `json:"order_status"`
	DeliveryStatus string                     `json:"delivery_status"`
	Address        *models.Address            `json:"delivery_address,omitempty"`
	TotalAmount    float64                    `json:"total_amount"`
	CustomerName   string                     `json:"customer_name"`
	VendorName     string                     `json:"vendor_name"`
}

// AvailableOrdersInput filters the available list.
type AvailableOrdersInput struct {
	Pincode string `validate:"omitempty,pincode"`
	Limit   int    `validate:"min=0,max=200"`
}

// AvailableOrders lists orders without an active assignment, parked orders first.
// When the display joins fail the list is served without them and placeholder names
// are shown instead.
func (s *Service) AvailableOrders(ctx context.Context, in AvailableOrdersInput) (out []AvailableOrder, err error) {
	defer func() { observe(ctx, "available_orders", err) }()
	if err := validate(&in); err != nil {
		return nil, err
	}
	rows, err := s.repos.Assignments.ListAvailableOrders(ctx, in.Pincode, in.Limit)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("available orders join failed, serving without display fields")
		if rows, err = s.repos.Assignments.ListAvailableOrdersBare(ctx, in.Pincode, in.Limit); err != nil {
			return nil, storeError("list available orders", err)
		}
	}
	out = make([]AvailableOrder, 0, len(rows))
	for _, r := range rows {
		out = append(out, AvailableOrder{
			OrderID:      r.OrderID,
			OrderNumber:  r.OrderNumber,
			Status:       r.Status,
			TotalAmount:  r.TotalAmount,
			Pincode:      r.Pincode,
			Address:      r.Address,
			CustomerName: orPlaceholder(r.CustomerName, PlaceholderCustomer),
			VendorName:   orPlaceholder(r.VendorName, PlaceholderVendor),
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, nil
}

// MyOrders lists the partner's in-progress deliveries with order and display fields.
// If the joined read fails, the assignments are listed on their own and each order is
// looked up individually; anything still missing is shown with placeholders.
func (s *Service) MyOrders(ctx context.Context, partnerID string) (out []MyOrder, err error) {
	defer func() { observe(ctx, "my_orders", err) }()
	if partnerID == "" {
		return nil, newError(KindValidation, "partner_id is required")
	}
	rows, err := s.repos.Assignments.ListPartnerAssignments(ctx, partnerID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("partner_id", partnerID).Msg("partner orders join failed, serving without display fields")
		if rows, err = s.partnerAssignmentsBare(ctx, partnerID); err != nil {
			return nil, storeError("list partner orders", err)
		}
	}
	out = make([]MyOrder, 0, len(rows))
	for _, r := range rows {
		m := MyOrder{
			Assignment:   r.Assignment,
			Address:      r.Address,
			CustomerName: orPlaceholder(r.CustomerName, PlaceholderCustomer),
			VendorName:   orPlaceholder(r.VendorName, PlaceholderVendor),
		}
		if r.OrderNumber != nil {
			m.OrderNumber = *r.OrderNumber
		}
		if r.TotalAmount != nil {
			m.TotalAmount = *r.TotalAmount
		}
		if r.OrderStatus != nil {
			m.OrderStatus = *r.OrderStatus
		}
		m.DeliveryStatus = MapStatus(m.OrderStatus, &r.Assignment.Status)
		out = append(out, m)
	}
	return out, nil
}

func (s *Service) partnerAssignmentsBare(ctx context.Context, partnerID string) ([]repository.PartnerAssignmentRow, error) {
	list, err := s.repos.Assignments.ListActiveByPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	rows := make([]repository.PartnerAssignmentRow, 0, len(list))
	for _, a := range list {
		row := repository.PartnerAssignmentRow{Assignment: a}
		if o, err := s.repos.Orders.GetByID(ctx, a.OrderID); err == nil && o != nil {
			row.OrderNumber = &o.OrderNumber
			row.OrderStatus = &o.Status
			row.Address = &o.DeliveryAddress
			row.TotalAmount = &o.TotalAmount
			if o.CustomerName != "" {
				row.CustomerName = &o.CustomerName
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func orPlaceholder(v *string, placeholder string) string {
	if v == nil || *v == "" {
		return placeholder
	}
	return *v
}
