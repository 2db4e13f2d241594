package ledger

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/evenly/internal/models"
)

func item(id string, price float64) models.ReceiptItem {
	return models.ReceiptItem{ID: id, Name: id, Price: price, Quantity: 1}
}

func owns(itemID string, shares ...models.PersonShare) models.ItemAssignment {
	return models.ItemAssignment{ItemID: itemID, Assignments: shares}
}

func share(personID string, s float64) models.PersonShare {
	return models.PersonShare{PersonID: personID, Share: s}
}

func assertSettlements(t *testing.T, got, want []models.Settlement) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d settlements %+v, want %d %+v", len(got), got, len(want), want)
	}
	for i := range got {
		if got[i].From != want[i].From || got[i].To != want[i].To || math.Abs(got[i].Amount-want[i].Amount) > 1e-9 {
			t.Errorf("settlement[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAddPerson(t *testing.T) {
	l := New()

	alice := l.AddPerson("Alice")
	bob := l.AddPerson("Bob")

	if alice.ID != "p1" || alice.DisplayName != "Alice" {
		t.Errorf("first person = %+v, want {p1 Alice}", alice)
	}
	if bob.ID != "p2" {
		t.Errorf("second person ID = %s, want p2", bob.ID)
	}

	balance := l.GetBalance()
	if len(balance.Persons) != 2 || balance.Persons[0].DisplayName != "Alice" {
		t.Errorf("unexpected persons: %+v", balance.Persons)
	}
}

func TestCalculateSettlements_Scenarios(t *testing.T) {
	t.Run("self-paid receipt settles nothing", func(t *testing.T) {
		l := New()
		alice := l.AddPerson("Alice")
		l.AddReceipt(models.Receipt{
			ID: "r1", Items: []models.ReceiptItem{item("i1", 10)},
			Subtotal: 10, Tax: 1, Tip: 2, Total: 13, PaidBy: alice.ID,
		}, []models.ItemAssignment{owns("i1", share(alice.ID, 1))})

		assertSettlements(t, l.CalculateSettlements(), nil)
	})

	t.Run("A: tax and tip prorated", func(t *testing.T) {
		l := New()
		alice := l.AddPerson("Alice")
		bob := l.AddPerson("Bob")
		l.AddReceipt(models.Receipt{
			ID: "r1", Items: []models.ReceiptItem{item("i1", 10), item("i2", 20)},
			Subtotal: 30, Tax: 3, Tip: 6, Total: 39, PaidBy: alice.ID,
		}, []models.ItemAssignment{
			owns("i1", share(alice.ID, 1)),
			owns("i2", share(bob.ID, 1)),
		})

		assertSettlements(t, l.CalculateSettlements(), []models.Settlement{
			{From: bob.ID, To: alice.ID, Amount: 26},
		})
	})

	t.Run("B: split item among two of three", func(t *testing.T) {
		l := New()
		a := l.AddPerson("A")
		b := l.AddPerson("B")
		l.AddPerson("C")
		l.AddReceipt(models.Receipt{
			ID: "r1", Items: []models.ReceiptItem{item("i1", 20)},
			Subtotal: 20, Tax: 2, Tip: 4, Total: 26, PaidBy: a.ID,
		}, []models.ItemAssignment{owns("i1", share(a.ID, 0.5), share(b.ID, 0.5))})

		assertSettlements(t, l.CalculateSettlements(), []models.Settlement{
			{From: b.ID, To: a.ID, Amount: 13},
		})
	})

	t.Run("C: receipts net out", func(t *testing.T) {
		l := New()
		alice := l.AddPerson("Alice")
		bob := l.AddPerson("Bob")
		l.AddReceipt(models.Receipt{
			ID: "r1", Items: []models.ReceiptItem{item("i1", 10)},
			Subtotal: 10, Total: 10, PaidBy: alice.ID,
		}, []models.ItemAssignment{owns("i1", share(bob.ID, 1))})
		l.AddReceipt(models.Receipt{
			ID: "r2", Items: []models.ReceiptItem{item("i1", 5)},
			Subtotal: 5, Total: 5, PaidBy: bob.ID,
		}, []models.ItemAssignment{owns("i1", share(alice.ID, 1))})

		assertSettlements(t, l.CalculateSettlements(), []models.Settlement{
			{From: bob.ID, To: alice.ID, Amount: 5},
		})
	})

	t.Run("D: discount prorated", func(t *testing.T) {
		l := New()
		alice := l.AddPerson("Alice")
		bob := l.AddPerson("Bob")
		l.AddReceipt(models.Receipt{
			ID: "r1", Items: []models.ReceiptItem{item("i1", 20), item("i2", 20)},
			Subtotal: 40, Discounts: 10, Tax: 3, Total: 33, PaidBy: alice.ID,
		}, []models.ItemAssignment{
			owns("i1", share(alice.ID, 1)),
			owns("i2", share(bob.ID, 1)),
		})

		assertSettlements(t, l.CalculateSettlements(), []models.Settlement{
			{From: bob.ID, To: alice.ID, Amount: 16.5},
		})
	})
}

func TestCalculateSettlements_UnassignedValueStaysWithPayer(t *testing.T) {
	l := New()
	alice := l.AddPerson("Alice")
	bob := l.AddPerson("Bob")

	// Only half of the item is assigned; the payer is still credited the full total.
	l.AddReceipt(models.Receipt{
		ID: "r1", Items: []models.ReceiptItem{item("i1", 20)},
		Subtotal: 20, Total: 20, PaidBy: alice.ID,
	}, []models.ItemAssignment{owns("i1", share(bob.ID, 0.5))})

	balances := l.NetBalances()
	if math.Abs(balances[0].NetBalance-20) > 1e-9 {
		t.Errorf("Alice net = %v, want 20", balances[0].NetBalance)
	}
	assertSettlements(t, l.CalculateSettlements(), []models.Settlement{
		{From: bob.ID, To: alice.ID, Amount: 10},
	})
}

func TestCalculateSettlements_Idempotent(t *testing.T) {
	l := New()
	a := l.AddPerson("A")
	b := l.AddPerson("B")
	c := l.AddPerson("C")
	l.AddReceipt(models.Receipt{
		ID: "r1", Items: []models.ReceiptItem{item("i1", 33.33), item("i2", 12.10)},
		Subtotal: 45.43, Tax: 3.63, Tip: 9, Total: 58.06, PaidBy: a.ID,
	}, []models.ItemAssignment{
		owns("i1", share(a.ID, 1.0/3), share(b.ID, 1.0/3), share(c.ID, 1.0/3)),
		owns("i2", share(c.ID, 1)),
	})

	first := l.CalculateSettlements()
	second := l.CalculateSettlements()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("settlements differ between calls: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(l.GetBalance().Settlements, first) {
		t.Error("cached settlements do not match the last result")
	}
}

func TestAddReceipt_UpsertKeepsPosition(t *testing.T) {
	l := New()
	l.AddReceipt(models.Receipt{ID: "r1", Merchant: "First"}, []models.ItemAssignment{owns("i1", share("p1", 1))})
	l.AddReceipt(models.Receipt{ID: "r2", Merchant: "Second"}, nil)
	l.AddReceipt(models.Receipt{ID: "r1", Merchant: "First, edited"}, []models.ItemAssignment{owns("i2", share("p2", 1))})

	balance := l.GetBalance()
	if len(balance.Receipts) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(balance.Receipts))
	}
	if balance.Receipts[0].ID != "r1" || balance.Receipts[0].Merchant != "First, edited" {
		t.Errorf("receipt not replaced in place: %+v", balance.Receipts[0])
	}
	assignments, ok := balance.AssignmentsFor("r1")
	if !ok || len(assignments) != 1 || assignments[0].ItemID != "i2" {
		t.Errorf("assignments not replaced: %+v", assignments)
	}
}

func TestUpdateReceipt(t *testing.T) {
	l := New()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l.AddReceipt(models.Receipt{ID: "r1", Merchant: "Cafe", Date: date, Subtotal: 10, Total: 10, PaidBy: "p1"}, nil)

	merchant := "Bistro"
	tip := 2.0
	total := 12.0
	updated, err := l.UpdateReceipt("r1", models.ReceiptPatch{Merchant: &merchant, Tip: &tip, Total: &total})
	if err != nil {
		t.Fatalf("UpdateReceipt failed: %v", err)
	}

	if updated.ID != "r1" {
		t.Errorf("ID changed to %s", updated.ID)
	}
	if updated.Merchant != "Bistro" || updated.Tip != 2 || updated.Total != 12 {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Subtotal != 10 || updated.PaidBy != "p1" || !updated.Date.Equal(date) {
		t.Errorf("untouched fields changed: %+v", updated)
	}

	stored, _ := l.Receipt("r1")
	if stored.Receipt.Merchant != "Bistro" {
		t.Errorf("stored merchant = %s, want Bistro", stored.Receipt.Merchant)
	}
}

func TestUpdateReceipt_NotFound(t *testing.T) {
	l := New()
	l.AddReceipt(models.Receipt{ID: "r1", Merchant: "Cafe"}, nil)
	before := l.GetBalance()

	merchant := "X"
	_, err := l.UpdateReceipt("missing", models.ReceiptPatch{Merchant: &merchant})
	if !errors.Is(err, ErrReceiptNotFound) {
		t.Fatalf("expected ErrReceiptNotFound, got %v", err)
	}
	if !reflect.DeepEqual(before, l.GetBalance()) {
		t.Error("state changed after failed update")
	}
}

func TestDeleteReceipt(t *testing.T) {
	l := New()
	alice := l.AddPerson("Alice")
	bob := l.AddPerson("Bob")
	l.AddReceipt(models.Receipt{
		ID: "r1", Items: []models.ReceiptItem{item("i1", 10)},
		Subtotal: 10, Total: 10, PaidBy: alice.ID,
	}, []models.ItemAssignment{owns("i1", share(bob.ID, 1))})
	if n := l.ReceiptCount(); n != 1 {
		t.Fatalf("ReceiptCount = %d, want 1", n)
	}

	l.DeleteReceipt("r1")
	l.DeleteReceipt("r1")
	l.DeleteReceipt("never-existed")

	balance := l.GetBalance()
	if len(balance.Receipts) != 0 || l.ReceiptCount() != 0 {
		t.Errorf("expected no receipts, got %d", len(balance.Receipts))
	}
	if _, ok := balance.AssignmentsFor("r1"); ok {
		t.Error("assignments survived delete")
	}
	assertSettlements(t, l.CalculateSettlements(), nil)
}

func TestGetBalance_IsSnapshot(t *testing.T) {
	l := New()
	l.AddPerson("Alice")
	receipt := models.Receipt{ID: "r1", Items: []models.ReceiptItem{item("i1", 10)}, Subtotal: 10, Total: 10, PaidBy: "p1"}
	assignments := []models.ItemAssignment{owns("i1", share("p1", 1))}
	l.AddReceipt(receipt, assignments)

	// Caller-held slices must not alias stored state.
	receipt.Items[0].Price = 999
	assignments[0].Assignments[0].Share = 0

	balance := l.GetBalance()
	balance.Persons[0].DisplayName = "Mallory"
	balance.Receipts[0].Items[0].Name = "changed"

	again := l.GetBalance()
	if again.Persons[0].DisplayName != "Alice" {
		t.Error("person list leaked")
	}
	if again.Receipts[0].Items[0].Price != 10 || again.Receipts[0].Items[0].Name != "i1" {
		t.Errorf("receipt leaked: %+v", again.Receipts[0].Items[0])
	}
	stored, _ := again.AssignmentsFor("r1")
	if stored[0].Assignments[0].Share != 1 {
		t.Error("assignments leaked")
	}
	if again.Settlements == nil || len(again.Settlements) != 0 {
		t.Errorf("expected empty settlements before calculation, got %#v", again.Settlements)
	}
}

func TestRestore(t *testing.T) {
	l := New()
	l.AddPerson("Old")
	l.CalculateSettlements()

	l.Restore(
		[]models.Person{{ID: "p1", DisplayName: "Alice"}, {ID: "p7", DisplayName: "Bob"}, {ID: "guest", DisplayName: "Guest"}},
		[]ReceiptRecord{{
			Receipt:     models.Receipt{ID: "r1", Items: []models.ReceiptItem{item("i1", 10)}, Subtotal: 10, Total: 10, PaidBy: "p1"},
			Assignments: []models.ItemAssignment{owns("i1", share("p7", 1))},
		}},
		[]models.Settlement{{From: "p7", To: "p1", Amount: 10}},
	)

	if got := l.GetBalance().Settlements; len(got) != 1 || got[0].Amount != 10 {
		t.Errorf("restored settlements = %+v", got)
	}

	next := l.AddPerson("Carol")
	if next.ID != "p8" {
		t.Errorf("next person ID = %s, want p8", next.ID)
	}
	assertSettlements(t, l.CalculateSettlements(), []models.Settlement{{From: "p7", To: "p1", Amount: 10}})
}

func TestLedger_ConcurrentAccess(t *testing.T) {
	l := New()
	payer := l.AddPerson("Payer")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := l.AddPerson("Guest")
			id := "r" + p.ID
			l.AddReceipt(models.Receipt{
				ID: id, Items: []models.ReceiptItem{item("i1", 10)},
				Subtotal: 10, Total: 10, PaidBy: payer.ID,
			}, []models.ItemAssignment{owns("i1", share(p.ID, 1))})
			l.CalculateSettlements()
		}(i)
	}
	wg.Wait()

	settlements := l.CalculateSettlements()
	if len(settlements) != 20 {
		t.Fatalf("expected 20 settlements, got %d", len(settlements))
	}
	var total float64
	for _, s := range settlements {
		total += s.Amount
	}
	if math.Abs(total-200) > 0.01 {
		t.Errorf("total transferred = %v, want 200", total)
	}
}
