package models

import (
	"strings"
	"time"
)

// DeliveryPartner is a courier who can be assigned orders.
type DeliveryPartner struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Name            string    `db:"name" json:"name"`
	Phone           string    `db:"phone" json:"phone"`
	IsAvailable     bool      `db:"is_available" json:"is_available"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	IsVerified      bool      `db:"is_verified" json:"is_verified"`
	CurrentLat      *float64  `db:"current_lat" json:"current_lat,omitempty"`
	CurrentLng      *float64  `db:"current_lng" json:"current_lng,omitempty"`
	ServicePincodes []string  `db:"service_pincodes" json:"service_pincodes"`
	Rating          float64   `db:"rating" json:"rating"`
	TotalDeliveries int       `db:"total_deliveries" json:"total_deliveries"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Serves reports whether the partner covers the given pincode.
// A partner without configured pincodes serves everywhere.
func (p *DeliveryPartner) Serves(pincode string) bool {
	pincode = strings.TrimSpace(pincode)
	if len(p.ServicePincodes) == 0 || pincode == "" {
		return true
	}
	for _, pc := range p.ServicePincodes {
		if pc == pincode {
			return true
		}
	}
	return false
}

// HasLocation reports whether the partner has reported a position.
func (p *DeliveryPartner) HasLocation() bool {
	return p.CurrentLat != nil && p.CurrentLng != nil
}

// JoinPincodes encodes service pincodes into the comma-delimited column format.
func JoinPincodes(pcs []string) string {
	out := make([]string, 0, len(pcs))
	for _, pc := range pcs {
		if pc = strings.TrimSpace(pc); pc != "" {
			out = append(out, pc)
		}
	}
	return strings.Join(out, ",")
}

// SplitPincodes decodes the comma-delimited service_pincodes column.
func SplitPincodes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, pc := range strings.Split(s, ",") {
		if pc = strings.TrimSpace(pc); pc != "" {
			out = append(out, pc)
		}
	}
	return out
}
