package domain

import "testing"

func TestDerivePaymentStatus(t *testing.T) {
	cases := []struct {
		name    string
		total   int64
		balance int64
		want    string
	}{
		{"settled", 10000, 0, PaymentStatusPaid},
		{"overpaid clamps to paid", 10000, -500, PaymentStatusPaid},
		{"untouched balance", 10000, 10000, PaymentStatusCredit},
		{"partial", 10000, 4000, PaymentStatusPartial},
		{"one cent remaining", 10000, 1, PaymentStatusPartial},
		{"one cent paid", 10000, 9999, PaymentStatusPartial},
		{"zero total", 0, 0, PaymentStatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DerivePaymentStatus(tc.total, tc.balance); got != tc.want {
				t.Fatalf("DerivePaymentStatus(%d, %d) = %s, want %s", tc.total, tc.balance, got, tc.want)
			}
		})
	}
}

func TestPermissionsForRole(t *testing.T) {
	admin := PermissionsForRole(RoleAdmin)
	cashier := PermissionsForRole(RoleCashier)

	if len(admin) == 0 || len(cashier) == 0 {
		t.Fatal("known roles must carry permissions")
	}
	if PermissionsForRole("manager") != nil {
		t.Fatal("unknown role must carry no permissions")
	}

	has := func(set []string, perm string) bool {
		for _, p := range set {
			if p == perm {
				return true
			}
		}
		return false
	}

	for _, perm := range []string{"stock.adjust", "reports.read", "users.manage", "products.write"} {
		if !has(admin, perm) {
			t.Fatalf("admin missing %s", perm)
		}
		if has(cashier, perm) {
			t.Fatalf("cashier unexpectedly holds %s", perm)
		}
	}
	for _, perm := range []string{"sales.create", "credit.record", "products.read"} {
		if !has(cashier, perm) {
			t.Fatalf("cashier missing %s", perm)
		}
	}
}
