package delivery

import (
	"math"
	"sort"

	"marketplaceDelivery/internal/geo"
	"marketplaceDelivery/models"
	"marketplaceDelivery/repository"
)

// SelectionRequest describes the order being allocated.
type SelectionRequest struct {
	Pincode string
	Pickup  *geo.Point
}

// Selector picks one partner among the available candidates, or nil when none fits.
type Selector interface {
	Select(req SelectionRequest, candidates []repository.AvailablePartner) *models.DeliveryPartner
}

// RankingSelector keeps partners serving the pincode and ranks them by distance to the
// pickup point, then active load, then rating, then id. Partners without a known
// location rank after located ones.
type RankingSelector struct{}

func (RankingSelector) Select(req SelectionRequest, candidates []repository.AvailablePartner) *models.DeliveryPartner {
	type ranked struct {
		p    *models.DeliveryPartner
		dist float64
		load int
	}
	var pool []ranked
	for _, c := range candidates {
		if c.Partner == nil || !c.Partner.IsAvailable || !c.Partner.IsActive || !c.Partner.Serves(req.Pincode) {
			continue
		}
		dist := math.Inf(1)
		if req.Pickup != nil {
			if at, ok := geo.PointOf(c.Partner.CurrentLat, c.Partner.CurrentLng); ok {
				dist = geo.HaversineKm(at, *req.Pickup)
			}
		}
		pool = append(pool, ranked{p: c.Partner, dist: dist, load: c.ActiveLoad})
	}
	if len(pool) == 0 {
		return nil
	}
	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.load != b.load {
			return a.load < b.load
		}
		if a.p.Rating != b.p.Rating {
			return a.p.Rating > b.p.Rating
		}
		return a.p.ID < b.p.ID
	})
	return pool[0].p
}

// deliveryFee is base + perKm * distance(pickup, drop), rounded to two decimals.
// The base fee alone applies when either point is unknown.
func deliveryFee(base, perKm float64, pickup, drop *geo.Point) float64 {
	fee := base
	if pickup != nil && drop != nil {
		fee += perKm * geo.HaversineKm(*pickup, *drop)
	}
	return math.Round(fee*100) / 100
}
