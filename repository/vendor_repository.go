package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"marketplaceDelivery/models"
)

type VendorRepository struct {
	db *sql.DB
}

func NewVendorRepository(db *sql.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// Create inserts a vendor, generating its id when empty.
func (r *VendorRepository) Create(ctx context.Context, v *models.Vendor) (*models.Vendor, error) {
	if v == nil {
		return nil, errors.New("vendor is nil")
	}
	if v.ID == "" {
		v.ID = newID()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var userID any
	if v.UserID != "" {
		userID = v.UserID
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO vendors (id, user_id, business_name, pincode, pickup_lat, pickup_lng) VALUES (?,?,?,?,?,?)`,
		v.ID, userID, v.BusinessName, v.Pincode, nullable(v.PickupLat), nullable(v.PickupLng))
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *VendorRepository) GetByID(ctx context.Context, id string) (*models.Vendor, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var v models.Vendor
	var userID sql.NullString
	var lat, lng sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, business_name, pincode, pickup_lat, pickup_lng FROM vendors WHERE id = ?`, id).
		Scan(&v.ID, &userID, &v.BusinessName, &v.Pincode, &lat, &lng)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	v.UserID = userID.String
	v.PickupLat = floatPtr(lat)
	v.PickupLng = floatPtr(lng)
	return &v, nil
}
