package calculator

import (
	"sort"

	"github.com/mmynk/evenly/internal/models"
)

// settleEpsilon is the dead band below which a balance counts as settled.
const settleEpsilon = 0.01

// ReceiptForBalance is a receipt together with its item assignments.
type ReceiptForBalance struct {
	Receipt     models.Receipt
	Assignments []models.ItemAssignment
}

// MemberBalance represents the balance information for one person.
type MemberBalance struct {
	PersonID   string  `json:"personId"`
	NetBalance float64 `json:"netBalance"` // Positive = owed money, Negative = owes money
	TotalPaid  float64 `json:"totalPaid"`  // Sum of receipt totals this person paid
	TotalOwed  float64 `json:"totalOwed"`  // Sum of this person's receipt shares
}

// CalculateBalances computes net balances across receipts.
//
// Every person in personIDs starts at zero, in the given order. Assignees
// and payers not in personIDs are appended on first sight so their money is
// still accounted for.
//
// Algorithm:
//   - For each receipt: each assignee owes their ReceiptShares total
//   - The payer is credited the full receipt total, assignee or not
//   - net_balance = total_paid - total_owed
func CalculateBalances(personIDs []string, receipts []ReceiptForBalance) []MemberBalance {
	balances := make([]MemberBalance, 0, len(personIDs))
	index := make(map[string]int, len(personIDs))

	lookup := func(personID string) *MemberBalance {
		i, exists := index[personID]
		if !exists {
			i = len(balances)
			index[personID] = i
			balances = append(balances, MemberBalance{PersonID: personID})
		}
		return &balances[i]
	}

	for _, id := range personIDs {
		lookup(id)
	}

	for _, r := range receipts {
		for _, share := range ReceiptShares(r.Receipt, r.Assignments) {
			lookup(share.PersonID).TotalOwed += share.Total
		}
		lookup(r.Receipt.PaidBy).TotalPaid += r.Receipt.Total
	}

	for i := range balances {
		balances[i].NetBalance = balances[i].TotalPaid - balances[i].TotalOwed
	}

	return balances
}

type party struct {
	personID string
	amount   float64
}

// SimplifyDebts reduces net balances to debtor→creditor transfers.
//
// Balances within ±0.01 of zero are ignored. Debtors and creditors are each
// sorted by amount, largest first, keeping input order on ties. The largest
// remaining debtor pays the largest remaining creditor min(owed, due); a
// party is done once its remaining amount drops below 0.01.
//
// This is a greedy approximation, not a minimum-transfer solution, but it
// never produces more than debtors+creditors-1 transfers.
func SimplifyDebts(balances []MemberBalance) []models.Settlement {
	var debtors, creditors []party
	for _, bal := range balances {
		if bal.NetBalance < -settleEpsilon {
			debtors = append(debtors, party{personID: bal.PersonID, amount: -bal.NetBalance})
		} else if bal.NetBalance > settleEpsilon {
			creditors = append(creditors, party{personID: bal.PersonID, amount: bal.NetBalance})
		}
	}

	sort.SliceStable(debtors, func(a, b int) bool { return debtors[a].amount > debtors[b].amount })
	sort.SliceStable(creditors, func(a, b int) bool { return creditors[a].amount > creditors[b].amount })

	settlements := []models.Settlement{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := debtor.amount
		if creditor.amount < amount {
			amount = creditor.amount
		}

		if rounded := RoundMoney(amount); rounded > 0 {
			settlements = append(settlements, models.Settlement{
				From:   debtor.personID,
				To:     creditor.personID,
				Amount: rounded,
			})
		}

		debtor.amount -= amount
		creditor.amount -= amount

		if debtor.amount < settleEpsilon {
			i++
		}
		if creditor.amount < settleEpsilon {
			j++
		}
	}

	return settlements
}
