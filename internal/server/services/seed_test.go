package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/learnhub/internal/server/auth"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
)

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	rm := memManager{s: env.store}
	seed := AdminSeed{Email: " Root@Example.com", FullName: "Root", Password: "Root@12345"}

	created, err := SeedAdmin(ctx, nil, env.tx, rm, seed, env.clock.Now)
	if err != nil {
		t.Fatalf("SeedAdmin error: %v", err)
	}
	if !created {
		t.Fatal("expected admin to be created")
	}

	u := env.store.userByEmail("root@example.com")
	if u == nil {
		t.Fatal("admin not stored")
	}
	if u.Role != models.RoleAdmin || !u.IsActive || !u.IsSystemProtected {
		t.Fatalf("unexpected admin state: %+v", u)
	}
	if !auth.VerifyPassword("Root@12345", u.PasswordHash) {
		t.Fatal("password hash does not verify")
	}
	if !env.store.verification(u.ID).CheckedOK {
		t.Fatal("admin must be verified")
	}

	created, err = SeedAdmin(ctx, nil, env.tx, rm, seed, env.clock.Now)
	if err != nil {
		t.Fatalf("second SeedAdmin error: %v", err)
	}
	if created {
		t.Fatal("second call must not create another admin")
	}

	if _, err := env.svc.Signin(ctx, "root@example.com", "Root@12345"); err != nil {
		t.Fatalf("seeded admin cannot sign in: %v", err)
	}
}

func TestSeedAdmin_RequiresCredentials(t *testing.T) {
	env := newEnv(t)

	_, err := SeedAdmin(context.Background(), nil, env.tx, memManager{s: env.store}, AdminSeed{Email: "root@example.com"}, nil)
	if err == nil {
		t.Fatal("expected error for empty password")
	}
	if len(env.store.users) != 0 {
		t.Fatal("no user must be created")
	}
}
