package calculator

import (
	"math"
	"testing"

	"github.com/mmynk/evenly/internal/models"
)

func soleOwner(itemID, personID string) models.ItemAssignment {
	return models.ItemAssignment{
		ItemID:      itemID,
		Assignments: []models.PersonShare{{PersonID: personID, Share: 1}},
	}
}

func TestCalculateBalances(t *testing.T) {
	receipts := []ReceiptForBalance{
		{
			Receipt: models.Receipt{
				ID: "r1",
				Items: []models.ReceiptItem{
					{ID: "i1", Price: 10, Quantity: 1},
					{ID: "i2", Price: 20, Quantity: 1},
				},
				Subtotal: 30, Tax: 3, Tip: 6, Total: 39,
				PaidBy: "p1",
			},
			Assignments: []models.ItemAssignment{soleOwner("i1", "p1"), soleOwner("i2", "p2")},
		},
	}

	balances := CalculateBalances([]string{"p1", "p2", "p3"}, receipts)
	if len(balances) != 3 {
		t.Fatalf("got %d balances, want 3", len(balances))
	}

	want := []struct {
		id   string
		paid float64
		owed float64
		net  float64
	}{
		{"p1", 39, 13, 26},
		{"p2", 0, 26, -26},
		{"p3", 0, 0, 0},
	}
	for i, w := range want {
		got := balances[i]
		if got.PersonID != w.id {
			t.Errorf("balances[%d].PersonID = %s, want %s", i, got.PersonID, w.id)
		}
		if math.Abs(got.TotalPaid-w.paid) > 0.001 {
			t.Errorf("%s paid = %v, want %v", w.id, got.TotalPaid, w.paid)
		}
		if math.Abs(got.TotalOwed-w.owed) > 0.001 {
			t.Errorf("%s owed = %v, want %v", w.id, got.TotalOwed, w.owed)
		}
		if math.Abs(got.NetBalance-w.net) > 0.001 {
			t.Errorf("%s net = %v, want %v", w.id, got.NetBalance, w.net)
		}
	}
}

func TestCalculateBalances_UnknownPeopleAppended(t *testing.T) {
	receipts := []ReceiptForBalance{
		{
			Receipt: models.Receipt{
				Items:    []models.ReceiptItem{{ID: "i1", Price: 10, Quantity: 1}},
				Subtotal: 10, Total: 10,
				PaidBy: "ghost-payer",
			},
			Assignments: []models.ItemAssignment{soleOwner("i1", "ghost-eater")},
		},
	}

	balances := CalculateBalances([]string{"p1"}, receipts)
	if len(balances) != 3 {
		t.Fatalf("got %d balances, want 3: %+v", len(balances), balances)
	}
	if balances[1].PersonID != "ghost-eater" || balances[2].PersonID != "ghost-payer" {
		t.Errorf("unexpected order: %+v", balances)
	}
}

func TestSimplifyDebts(t *testing.T) {
	tests := []struct {
		name     string
		balances []MemberBalance
		want     []models.Settlement
	}{
		{
			name:     "nothing owed",
			balances: []MemberBalance{{PersonID: "a"}, {PersonID: "b"}},
			want:     []models.Settlement{},
		},
		{
			name: "dead band is ignored",
			balances: []MemberBalance{
				{PersonID: "a", NetBalance: 0.005},
				{PersonID: "b", NetBalance: -0.005},
			},
			want: []models.Settlement{},
		},
		{
			name: "single pair",
			balances: []MemberBalance{
				{PersonID: "a", NetBalance: 26},
				{PersonID: "b", NetBalance: -26},
			},
			want: []models.Settlement{{From: "b", To: "a", Amount: 26}},
		},
		{
			name: "largest debtor pays largest creditor first",
			balances: []MemberBalance{
				{PersonID: "a", NetBalance: 30},
				{PersonID: "b", NetBalance: -10},
				{PersonID: "c", NetBalance: -25},
				{PersonID: "d", NetBalance: 5},
			},
			want: []models.Settlement{
				{From: "c", To: "a", Amount: 25},
				{From: "b", To: "a", Amount: 5},
				{From: "b", To: "d", Amount: 5},
			},
		},
		{
			name: "ties keep input order",
			balances: []MemberBalance{
				{PersonID: "a", NetBalance: -10},
				{PersonID: "b", NetBalance: -10},
				{PersonID: "c", NetBalance: 10},
				{PersonID: "d", NetBalance: 10},
			},
			want: []models.Settlement{
				{From: "a", To: "c", Amount: 10},
				{From: "b", To: "d", Amount: 10},
			},
		},
		{
			name: "amounts are rounded",
			balances: []MemberBalance{
				{PersonID: "a", NetBalance: 10.0 / 3},
				{PersonID: "b", NetBalance: -10.0 / 3},
			},
			want: []models.Settlement{{From: "b", To: "a", Amount: 3.33}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SimplifyDebts(tt.balances)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d settlements %+v, want %d %+v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("settlement[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSimplifyDebts_TransfersMatchBalances(t *testing.T) {
	balances := []MemberBalance{
		{PersonID: "a", NetBalance: 41.27},
		{PersonID: "b", NetBalance: -12.50},
		{PersonID: "c", NetBalance: -19.02},
		{PersonID: "d", NetBalance: 3.10},
		{PersonID: "e", NetBalance: -12.85},
	}

	settlements := SimplifyDebts(balances)

	var transferred float64
	for _, s := range settlements {
		if s.Amount <= 0 {
			t.Errorf("non-positive settlement: %+v", s)
		}
		transferred += s.Amount
	}
	if math.Abs(transferred-44.37) > 0.02 {
		t.Errorf("transferred = %v, want 44.37", transferred)
	}
	if limit := 3 + 2 - 1; len(settlements) > limit {
		t.Errorf("got %d settlements, want at most %d", len(settlements), limit)
	}
}
