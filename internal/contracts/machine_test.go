package contracts

import (
	"testing"
	"time"

	"github.com/credfacil/credfacil-backend/pkg/enums"
)

func TestComputeDaysOverdue(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		asOf time.Time
		want int
	}{
		{"before due date", due.AddDate(0, 0, -5), 0},
		{"on due date", due, 0},
		{"one day late", due.AddDate(0, 0, 1), 1},
		{"forty five days late", due.AddDate(0, 0, 45), 45},
		{"partial day rounds down", due.Add(36 * time.Hour), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeDaysOverdue(due, tc.asOf); got != tc.want {
				t.Fatalf("ComputeDaysOverdue = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestStatusForOverdue(t *testing.T) {
	tests := []struct {
		name    string
		current enums.InstallmentStatus
		days    int
		want    enums.InstallmentStatus
	}{
		{"scheduled stays scheduled", enums.InstallmentStatusScheduled, 0, enums.InstallmentStatusScheduled},
		{"scheduled goes late", enums.InstallmentStatusScheduled, 1, enums.InstallmentStatusLate},
		{"late at threshold stays late", enums.InstallmentStatusLate, 60, enums.InstallmentStatusLate},
		{"past threshold defaults", enums.InstallmentStatusLate, 61, enums.InstallmentStatusDefaulted},
		{"scheduled past threshold defaults", enums.InstallmentStatusScheduled, 90, enums.InstallmentStatusDefaulted},
		{"paid is terminal", enums.InstallmentStatusPaid, 90, enums.InstallmentStatusPaid},
		{"cancelled is terminal", enums.InstallmentStatusCancelled, 90, enums.InstallmentStatusCancelled},
		{"defaulted stays defaulted", enums.InstallmentStatusDefaulted, 5, enums.InstallmentStatusDefaulted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusForOverdue(tc.current, tc.days); got != tc.want {
				t.Fatalf("StatusForOverdue(%s, %d) = %s, want %s", tc.current, tc.days, got, tc.want)
			}
		})
	}
}

func TestEligibilityAfterSecondPayment(t *testing.T) {
	tests := []struct {
		name string
		days int
		want enums.ContractEligibility
	}{
		{"on time", 0, enums.ContractEligible},
		{"one day late", 1, enums.ContractEligibleLate},
		{"at threshold", 60, enums.ContractEligibleLate},
		{"past threshold", 61, enums.ContractIneligible},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EligibilityAfterSecondPayment(tc.days); got != tc.want {
				t.Fatalf("EligibilityAfterSecondPayment(%d) = %s, want %s", tc.days, got, tc.want)
			}
		})
	}
}

func TestContributesToSubQuota(t *testing.T) {
	tests := []struct {
		name   string
		number int
		days   int
		want   bool
	}{
		{"second late inside window", 2, 45, true},
		{"second at threshold", 2, 60, true},
		{"second on time", 2, 0, false},
		{"second past threshold", 2, 61, false},
		{"third late", 3, 45, false},
		{"first late", 1, 45, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ContributesToSubQuota(tc.number, tc.days); got != tc.want {
				t.Fatalf("ContributesToSubQuota(%d, %d) = %v, want %v", tc.number, tc.days, got, tc.want)
			}
		})
	}
}
