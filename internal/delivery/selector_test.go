package delivery

import (
	"testing"

	"marketplaceDelivery/internal/geo"
	"marketplaceDelivery/models"
	"marketplaceDelivery/repository"
)

func partnerAt(id string, lat, lng float64, rating float64, pincodes ...string) *models.DeliveryPartner {
	return &models.DeliveryPartner{
		ID: id, IsAvailable: true, IsActive: true, Rating: rating,
		CurrentLat: &lat, CurrentLng: &lng, ServicePincodes: pincodes,
	}
}

func TestRankingSelector(t *testing.T) {
	pickup := &geo.Point{Lat: 12.9716, Lng: 77.5946}
	near := partnerAt("near", 12.9720, 77.5950, 3.0, "560001")
	far := partnerAt("far", 13.0500, 77.6500, 5.0, "560001")
	elsewhere := partnerAt("elsewhere", 12.9716, 77.5946, 5.0, "110001")
	unlocated := &models.DeliveryPartner{ID: "unlocated", IsAvailable: true, IsActive: true, Rating: 5}

	sel := RankingSelector{}
	cands := []repository.AvailablePartner{{Partner: far}, {Partner: elsewhere}, {Partner: unlocated}, {Partner: near}}

	if got := sel.Select(SelectionRequest{Pincode: "560001", Pickup: pickup}, cands); got == nil || got.ID != "near" {
		t.Fatalf("expected nearest serving partner, got %+v", got)
	}
	if got := sel.Select(SelectionRequest{Pincode: "400001", Pickup: pickup}, cands); got == nil || got.ID != "unlocated" {
		t.Fatalf("expected the only partner serving every pincode, got %+v", got)
	}
	if got := sel.Select(SelectionRequest{Pincode: "560001", Pickup: pickup}, nil); got != nil {
		t.Fatalf("expected nil without candidates, got %+v", got)
	}
}

func TestRankingSelector_TieBreaks(t *testing.T) {
	a := partnerAt("a", 12.97, 77.59, 4.0)
	b := partnerAt("b", 12.97, 77.59, 4.0)
	c := partnerAt("c", 12.97, 77.59, 4.8)
	pickup := &geo.Point{Lat: 12.97, Lng: 77.59}
	sel := RankingSelector{}

	// Equal distance: lower load wins.
	got := sel.Select(SelectionRequest{Pickup: pickup}, []repository.AvailablePartner{{Partner: c, ActiveLoad: 2}, {Partner: b, ActiveLoad: 0}, {Partner: a, ActiveLoad: 1}})
	if got.ID != "b" {
		t.Fatalf("load tie-break: got %s", got.ID)
	}
	// Equal load: higher rating wins.
	got = sel.Select(SelectionRequest{Pickup: pickup}, []repository.AvailablePartner{{Partner: a}, {Partner: c}, {Partner: b}})
	if got.ID != "c" {
		t.Fatalf("rating tie-break: got %s", got.ID)
	}
	// Everything equal: lowest id wins.
	got = sel.Select(SelectionRequest{}, []repository.AvailablePartner{{Partner: b}, {Partner: a}})
	if got.ID != "a" {
		t.Fatalf("id tie-break: got %s", got.ID)
	}
}

func TestDeliveryFee(t *testing.T) {
	a := &geo.Point{Lat: 0, Lng: 0}
	b := &geo.Point{Lat: 1, Lng: 0}
	if got := deliveryFee(30, 5, nil, b); got != 30 {
		t.Fatalf("fee without pickup = %v", got)
	}
	got := deliveryFee(30, 5, a, b)
	// 1 degree of latitude is about 111.19 km.
	if got < 30+5*111.1 || got > 30+5*111.3 {
		t.Fatalf("fee = %v", got)
	}
}
