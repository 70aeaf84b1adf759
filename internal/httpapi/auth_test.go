package httpapi

import (
	"context"
	"testing"
	"time"

	"tokokita/backend/internal/domain"
	"tokokita/backend/internal/store/memory"
)

func newTestAuth(t *testing.T) *AuthManager {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin-secret-1")
	t.Setenv("SEED_CASHIER_PASSWORD", "cashier-secret-1")
	return NewAuthManager("unit-test-secret-0123456789abcdef", time.Hour, memory.NewSeeded())
}

func TestTokenRoundTrip(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(domain.LoginRequest{Username: "Admin", Password: "admin-secret-1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestTokenSignedWithDifferentSecretRejected(t *testing.T) {
	auth := newTestAuth(t)
	other := NewAuthManager("another-secret-fedcba98765432100123", time.Hour, memory.NewSeeded())

	resp, err := other.Login(domain.LoginRequest{Username: "admin", Password: "admin-secret-1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := auth.ParseToken(resp.AccessToken); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "admin-secret-1")
	t.Setenv("SEED_CASHIER_PASSWORD", "cashier-secret-1")
	auth := NewAuthManager("unit-test-secret-0123456789abcdef", time.Hour, memory.NewSeeded())

	token, err := auth.sign("admin", domain.RoleAdmin, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatal("expired token was accepted")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := newTestAuth(t)

	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "nope"}); err == nil {
		t.Fatal("wrong password accepted")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "ghost", Password: "whatever"}); err == nil {
		t.Fatal("unknown user accepted")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: ""}); err == nil {
		t.Fatal("empty password accepted")
	}
}

func TestLoginResponseCarriesRolePermissions(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(domain.LoginRequest{Username: "cashier", Password: "cashier-secret-1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != domain.RoleCashier {
		t.Fatalf("expected cashier role, got %q", resp.Role)
	}
	for _, perm := range resp.Permissions {
		if perm == "stock.adjust" || perm == "users.manage" {
			t.Fatalf("cashier granted admin permission %s", perm)
		}
	}
}

func TestCreateCashierValidation(t *testing.T) {
	auth := newTestAuth(t)

	cases := []domain.CashierCreateRequest{
		{Username: "ab", Password: "longenough"},
		{Username: "has space", Password: "longenough"},
		{Username: "valid-name", Password: "tiny"},
		{Username: "cashier", Password: "longenough"},
	}
	for _, req := range cases {
		if _, err := auth.CreateCashier(req); err == nil {
			t.Fatalf("expected rejection for %+v", req)
		}
	}

	created, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "Sari", Password: "rahasia1"})
	if err != nil {
		t.Fatalf("create cashier failed: %v", err)
	}
	if created.Username != "sari" || created.Role != domain.RoleCashier || !created.Active {
		t.Fatalf("unexpected cashier: %+v", created)
	}

	if _, err := auth.Login(domain.LoginRequest{Username: "sari", Password: "rahasia1"}); err != nil {
		t.Fatalf("new cashier login failed: %v", err)
	}
}

func TestLegacyPlaintextPasswordUpgradedOnBootstrap(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "admin-secret-1")
	t.Setenv("SEED_CASHIER_PASSWORD", "cashier-secret-1")

	repo := memory.NewSeeded()
	if err := repo.CreateUser(context.Background(), domain.UserAccount{
		Username: "legacy",
		Password: "plain-text-pw",
		Role:     domain.RoleCashier,
	}); err != nil {
		t.Fatalf("seed legacy user: %v", err)
	}

	auth := NewAuthManager("unit-test-secret-0123456789abcdef", time.Hour, repo)
	if _, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "plain-text-pw"}); err != nil {
		t.Fatalf("legacy user login failed: %v", err)
	}

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	for _, user := range users {
		if user.Username == "legacy" && !isPasswordHash(user.Password) {
			t.Fatal("legacy password was not upgraded to a hash")
		}
	}
}
