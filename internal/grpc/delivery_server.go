package grpcserver

import (
	"context"

	"marketplaceDelivery/internal/auth"
	"marketplaceDelivery/internal/delivery"
	"marketplaceDelivery/models"
	"marketplaceDelivery/repository"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// DeliveryServer implements DeliveryService RPCs on top of the delivery Service.
// Domain failures are returned as envelopes; only authentication and authorization
// failures are gRPC status errors.
type DeliveryServer struct {
	Service *delivery.Service
	Repos   delivery.Repositories
	Users   repository.UserRepositoryI
}

func NewDeliveryServer(svc *delivery.Service, repos delivery.Repositories, users repository.UserRepositoryI) *DeliveryServer {
	return &DeliveryServer{Service: svc, Repos: repos, Users: users}
}

type createAssignmentRequest struct {
	OrderItemID string `json:"order_item_id"`
	OrderID     string `json:"order_id"`
	VendorID    string `json:"vendor_id"`
	Pincode     string `json:"pincode"`
	Priority    string `json:"priority"`
}

type orderRequest struct {
	OrderID   string `json:"order_id"`
	PartnerID string `json:"partner_id"`
}

type codeRequest struct {
	OrderID   string `json:"order_id"`
	PartnerID string `json:"partner_id"`
	OTP       string `json:"otp"`
}

type cancelRequest struct {
	OrderID   string `json:"order_id"`
	PartnerID string `json:"partner_id"`
	Reason    string `json:"reason"`
	Details   string `json:"details"`
}

type itemStatusRequest struct {
	ItemID   string `json:"item_id"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

type availableRequest struct {
	PartnerID string `json:"partner_id"`
	Pincode   string `json:"pincode"`
	Limit     int    `json:"limit"`
}

type availabilityRequest struct {
	PartnerID string `json:"partner_id"`
	Available bool   `json:"available"`
}

type locationRequest struct {
	PartnerID string  `json:"partner_id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// reply wraps a result or failure into the envelope Struct.
func reply(data any, err error, message string) (*structpb.Struct, error) {
	return encode(delivery.NewEnvelope(data, err, message))
}

// CreateAssignment allocates a partner for an order, or parks it for pickup.
func (s *DeliveryServer) CreateAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequireVendorOrAdmin(ctx)
	if err != nil {
		return nil, err
	}
	var req createAssignmentRequest
	if err := decode(in, &req); err != nil {
		return reply(nil, err, "")
	}
	if err := s.authorizeVendor(ctx, p, req.OrderID, req.VendorID, req.OrderItemID); err != nil {
		return nil, err
	}
	res, err := s.Service.CreateAssignmentFromOrder(ctx, delivery.CreateAssignmentInput{
		OrderItemID: req.OrderItemID,
		OrderID:     req.OrderID,
		VendorID:    req.VendorID,
		Pincode:     req.Pincode,
		Priority:    req.Priority,
	})
	msg := "delivery partner assigned"
	if res != nil && res.PendingAssignment {
		msg = "no partner available, order is ready for pickup"
	}
	return reply(res, err, msg)
}

// PickupReadyOrder lets the calling partner claim an order parked for pickup.
func (s *DeliveryServer) PickupReadyOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req orderRequest
	partnerID, out, err := s.partnerRequest(ctx, in, &req, &req.PartnerID)
	if out != nil || err != nil {
		return out, err
	}
	res, err := s.Service.PickupReadyOrder(ctx, delivery.PickupReadyInput{OrderID: req.OrderID, PartnerID: partnerID})
	return reply(res, err, "order claimed")
}

func (s *DeliveryServer) AcceptAssignment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req orderRequest
	partnerID, out, err := s.partnerRequest(ctx, in, &req, &req.PartnerID)
	if out != nil || err != nil {
		return out, err
	}
	a, err := s.Service.AcceptAssignment(ctx, delivery.AssignmentRef{OrderID: req.OrderID, PartnerID: partnerID})
	return reply(a, err, "assignment accepted")
}

// MarkPickedUp verifies the pickup code shown by the vendor.
func (s *DeliveryServer) MarkPickedUp(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req codeRequest
	partnerID, out, err := s.partnerRequest(ctx, in, &req, &req.PartnerID)
	if out != nil || err != nil {
		return out, err
	}
	a, err := s.Service.MarkPickedUp(ctx, delivery.VerifyCodeInput{OrderID: req.OrderID, PartnerID: partnerID, OTP: req.OTP})
	return reply(a, err, "order picked up")
}

func (s *DeliveryServer) MarkOutForDelivery(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req orderRequest
	partnerID, out, err := s.partnerRequest(ctx, in, &req, &req.PartnerID)
	if out != nil || err != nil {
		return out, err
	}
	err = s.Service.MarkOutForDelivery(ctx, delivery.AssignmentRef{OrderID: req.OrderID, PartnerID: partnerID})
	return reply(nil, err, "order out for delivery")
}

// MarkDelivered verifies the delivery code shown by the customer.
func (s *DeliveryServer) MarkDelivered(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req codeRequest
	partnerID, out, err := s.partnerRequest(ctx, in, &req, &req.PartnerID)
	if out != nil || err != nil {
		return out, err
	}
	a, err := s.Service.MarkDelivered(ctx, delivery.VerifyCodeInput{OrderID: req.OrderID, PartnerID: partnerID, OTP: req.OTP})
	return reply(a, err, "order delivered")
}

func (s *DeliveryServer) CancelDelivery(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req cancelRequest
	partnerID, out, err := s.partnerRequest(ctx, in, &req, &req.PartnerID)
	if out != nil || err != nil {
		return out, err
	}
	c, err := s.Service.CancelDelivery(ctx, delivery.CancelInput{
		OrderID: req.OrderID, PartnerID: partnerID, Reason: req.Reason, Details: req.Details,
	})
	return reply(c, err, "delivery cancelled")
}

// UpdateItemStatus moves an order item through fulfilment; vendors may only touch their own items.
func (s *DeliveryServer) UpdateItemStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequireVendorOrAdmin(ctx)
	if err != nil {
		return nil, err
	}
	var req itemStatusRequest
	if err := decode(in, &req); err != nil {
		return reply(nil, err, "")
	}
	if err := s.authorizeVendor(ctx, p, "", "", req.ItemID); err != nil {
		return nil, err
	}
	res, err := s.Service.UpdateItemStatus(ctx, delivery.ItemStatusInput{ItemID: req.ItemID, Status: req.Status, Priority: req.Priority})
	return reply(res, err, "item status updated")
}

func (s *DeliveryServer) AvailableOrders(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req availableRequest
	_, out, err := s.partnerRequest(ctx, in, &req, &req.PartnerID)
	if out != nil || err != nil {
		return out, err
	}
	list, err := s.Service.AvailableOrders(ctx, delivery.AvailableOrdersInput{Pincode: req.Pincode, Limit: req.Limit})
	return reply(list, err, "")
}

func (s *DeliveryServer) MyOrders(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req orderRequest
	partnerID, out, err := s.partnerRequest(ctx, in, &req, &req.PartnerID)
	if out != nil || err != nil {
		return out, err
	}
	list, err := s.Service.MyOrders(ctx, partnerID)
	return reply(list, err, "")
}

// GetDeliveryStatus is open to any caller. The delivery code is included only for
// admins and the order's customer.
func (s *DeliveryServer) GetDeliveryStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	var req orderRequest
	if err := decode(in, &req); err != nil {
		return reply(nil, err, "")
	}
	includeCode, err := s.canSeeDeliveryCode(ctx, p, req.OrderID)
	if err != nil {
		return reply(nil, err, "")
	}
	st, err := s.Service.GetDeliveryStatus(ctx, delivery.StatusInput{OrderID: req.OrderID, IncludeCode: includeCode})
	return reply(st, err, "")
}

func (s *DeliveryServer) UpdateAvailability(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req availabilityRequest
	partnerID, out, err := s.partnerRequest(ctx, in, &req, &req.PartnerID)
	if out != nil || err != nil {
		return out, err
	}
	dp, err := s.Service.UpdatePartnerAvailability(ctx, delivery.AvailabilityInput{PartnerID: partnerID, Available: req.Available})
	return reply(dp, err, "availability updated")
}

func (s *DeliveryServer) UpdateLocation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req locationRequest
	partnerID, out, err := s.partnerRequest(ctx, in, &req, &req.PartnerID)
	if out != nil || err != nil {
		return out, err
	}
	dp, err := s.Service.UpdatePartnerLocation(ctx, delivery.LocationInput{PartnerID: partnerID, Lat: req.Lat, Lng: req.Lng})
	return reply(dp, err, "location updated")
}

// partnerRequest authorizes a partner RPC, decodes in into dst and resolves the acting
// partner id. A non-nil Struct is a finished reply for a malformed request.
func (s *DeliveryServer) partnerRequest(ctx context.Context, in *structpb.Struct, dst any, requested *string) (string, *structpb.Struct, error) {
	p, err := auth.RequirePartner(ctx)
	if err != nil {
		return "", nil, err
	}
	if err := decode(in, dst); err != nil {
		out, err := reply(nil, err, "")
		return "", out, err
	}
	id, err := s.resolvePartner(ctx, p, *requested)
	if err != nil {
		return "", nil, err
	}
	return id, nil, nil
}

// resolvePartner returns the partner id the caller acts as. Partners act as themselves;
// admins name the partner explicitly.
func (s *DeliveryServer) resolvePartner(ctx context.Context, p *auth.Principal, requested string) (string, error) {
	if p.IsAdmin() {
		if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
			return "", err
		}
		if requested == "" {
			return "", status.Error(codes.InvalidArgument, "partner_id is required for admin callers")
		}
		return requested, nil
	}
	u, err := s.Users.GetByUsername(ctx, p.Name)
	if err != nil {
		return "", status.Errorf(codes.Internal, "get user: %v", err)
	}
	if u == nil || u.Role != models.RoleDeliveryPartner {
		return "", status.Error(codes.PermissionDenied, "caller is not a delivery partner")
	}
	dp, err := s.Repos.Partners.GetByUserID(ctx, u.ID)
	if err != nil {
		return "", status.Errorf(codes.Internal, "get partner: %v", err)
	}
	if dp == nil {
		return "", status.Error(codes.PermissionDenied, "no delivery partner profile for caller")
	}
	if requested != "" && requested != dp.ID {
		return "", status.Error(codes.PermissionDenied, "partners may only act for themselves")
	}
	return dp.ID, nil
}

// authorizeVendor checks that a vendor caller owns vendorID, or the vendor of itemID
// when vendorID is empty, and that the vendor sells an item of orderID when given.
// Admins are verified against their stored role.
func (s *DeliveryServer) authorizeVendor(ctx context.Context, p *auth.Principal, orderID, vendorID, itemID string) error {
	if p.IsAdmin() {
		_, err := auth.RequireAdmin(ctx, s.Users)
		return err
	}
	if itemID != "" {
		it, err := s.Repos.Items.GetByID(ctx, itemID)
		if err != nil {
			return status.Errorf(codes.Internal, "get order item: %v", err)
		}
		if it != nil {
			if vendorID != "" && it.VendorID != vendorID {
				return status.Error(codes.PermissionDenied, "order item belongs to another vendor")
			}
			vendorID = it.VendorID
		}
	}
	if vendorID == "" {
		return status.Error(codes.PermissionDenied, "vendor callers must name their vendor_id or order item")
	}
	u, err := s.Users.GetByUsername(ctx, p.Name)
	if err != nil {
		return status.Errorf(codes.Internal, "get user: %v", err)
	}
	v, err := s.Repos.Vendors.GetByID(ctx, vendorID)
	if err != nil {
		return status.Errorf(codes.Internal, "get vendor: %v", err)
	}
	if u == nil || v == nil || v.UserID == "" || v.UserID != u.ID {
		return status.Error(codes.PermissionDenied, "vendor does not own this order item")
	}
	if orderID == "" {
		return nil
	}
	items, err := s.Repos.Items.ListByOrder(ctx, orderID)
	if err != nil {
		return status.Errorf(codes.Internal, "list order items: %v", err)
	}
	for _, it := range items {
		if it.VendorID == vendorID {
			return nil
		}
	}
	return status.Error(codes.PermissionDenied, "vendor has no items in this order")
}

func (s *DeliveryServer) canSeeDeliveryCode(ctx context.Context, p *auth.Principal, orderID string) (bool, error) {
	if p.IsAdmin() {
		_, err := auth.RequireAdmin(ctx, s.Users)
		return err == nil, nil
	}
	if p.Kind != auth.KindCustomer || orderID == "" {
		return false, nil
	}
	u, err := s.Users.GetByUsername(ctx, p.Name)
	if err != nil {
		return false, &delivery.Error{Kind: delivery.KindTransient, Message: "load caller", Err: err}
	}
	o, err := s.Repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return false, &delivery.Error{Kind: delivery.KindTransient, Message: "load order", Err: err}
	}
	return u != nil && o != nil && o.CustomerID == u.ID, nil
}
