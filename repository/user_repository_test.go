package repository

import (
	"context"
	"testing"

	"marketplaceDelivery/models"
)

func TestUserRepository_CRUDAndQueries(t *testing.T) {
	f := newFixture(t, "userrepo")
	repo := f.users
	ctx := context.Background()

	// Create with default role
	u, err := repo.Create(ctx, "alice", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == "" || u.Username != "alice" || u.Role != models.RoleCustomer {
		t.Fatalf("unexpected created user: %+v", u)
	}

	g, err := repo.GetByID(ctx, u.ID)
	if err != nil || g == nil || g.Username != "alice" {
		t.Fatalf("get by id: %v %+v", err, g)
	}

	g2, err := repo.GetByUsername(ctx, "alice")
	if err != nil || g2 == nil || g2.ID != u.ID {
		t.Fatalf("get by username: %v %+v", err, g2)
	}

	if err := repo.UpdateRoleByUsername(ctx, "alice", models.RoleAdmin); err != nil {
		t.Fatalf("update role: %v", err)
	}
	g3, _ := repo.GetByUsername(ctx, "alice")
	if g3.Role != models.RoleAdmin {
		t.Fatalf("role not updated: %+v", g3)
	}

	missing, err := repo.GetByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown user, got %+v err=%v", missing, err)
	}

	if _, err := repo.Create(ctx, "alice", ""); err == nil {
		t.Fatalf("expected duplicate username to fail")
	}
}
