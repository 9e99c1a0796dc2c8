package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"marketplaceDelivery/models"
)

type PartnerRepository struct {
	db *sql.DB
}

func NewPartnerRepository(db *sql.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// AvailablePartner is a partner eligible for allocation together with its current load.
type AvailablePartner struct {
	Partner    *models.DeliveryPartner
	ActiveLoad int
}

const partnerColumns = `p.id, p.user_id, p.name, p.phone, p.is_available, p.is_active, p.is_verified,
	p.current_lat, p.current_lng, p.service_pincodes, p.rating, p.total_deliveries, p.created_at, p.updated_at`

func (r *PartnerRepository) Create(ctx context.Context, p *models.DeliveryPartner) (*models.DeliveryPartner, error) {
	if p == nil {
		return nil, errors.New("partner is nil")
	}
	if p.ID == "" {
		p.ID = newID()
	}
	now := nowUTC()
	p.CreatedAt, p.UpdatedAt = now, now
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO delivery_partners (id, user_id, name, phone, is_available, is_active, is_verified, current_lat, current_lng, service_pincodes, rating, total_deliveries, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, nullString(p.UserID), p.Name, p.Phone, boolInt(p.IsAvailable), boolInt(p.IsActive), boolInt(p.IsVerified),
		nullable(p.CurrentLat), nullable(p.CurrentLng), models.JoinPincodes(p.ServicePincodes), p.Rating, p.TotalDeliveries, now, now)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PartnerRepository) GetByID(ctx context.Context, id string) (*models.DeliveryPartner, error) {
	return r.getOne(ctx, `SELECT `+partnerColumns+` FROM delivery_partners p WHERE p.id = ?`, id)
}

// GetByUserID resolves the partner row owned by an authenticated user.
func (r *PartnerRepository) GetByUserID(ctx context.Context, userID string) (*models.DeliveryPartner, error) {
	return r.getOne(ctx, `SELECT `+partnerColumns+` FROM delivery_partners p WHERE p.user_id = ?`, userID)
}

func (r *PartnerRepository) getOne(ctx context.Context, q string, arg any) (*models.DeliveryPartner, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	p, err := scanPartner(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListAvailable returns available, active partners with the number of active assignments each holds.
func (r *PartnerRepository) ListAvailable(ctx context.Context) ([]AvailablePartner, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+partnerColumns+`,
	(SELECT COUNT(*) FROM delivery_assignments a WHERE a.delivery_partner_id = p.id AND a.status IN ('assigned','accepted','picked_up')) AS active_load
FROM delivery_partners p
WHERE p.is_available = 1 AND p.is_active = 1
ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AvailablePartner
	for rows.Next() {
		var load int
		p, err := scanPartner(rows, &load)
		if err != nil {
			return nil, err
		}
		out = append(out, AvailablePartner{Partner: p, ActiveLoad: load})
	}
	return out, rows.Err()
}

func (r *PartnerRepository) UpdateAvailability(ctx context.Context, id string, available bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE delivery_partners SET is_available = ?, updated_at = ? WHERE id = ?`, boolInt(available), nowUTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PartnerRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE delivery_partners SET current_lat = ?, current_lng = ?, updated_at = ? WHERE id = ?`, lat, lng, nowUTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPartner(s rowScanner, extra ...any) (*models.DeliveryPartner, error) {
	var p models.DeliveryPartner
	var userID sql.NullString
	var lat, lng sql.NullFloat64
	var available, active, verified int
	var pincodes string
	dest := []any{&p.ID, &userID, &p.Name, &p.Phone, &available, &active, &verified,
		&lat, &lng, &pincodes, &p.Rating, &p.TotalDeliveries, &p.CreatedAt, &p.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p.UserID = userID.String
	p.IsAvailable, p.IsActive, p.IsVerified = available == 1, active == 1, verified == 1
	p.CurrentLat, p.CurrentLng = floatPtr(lat), floatPtr(lng)
	p.ServicePincodes = models.SplitPincodes(pincodes)
	return &p, nil
}
