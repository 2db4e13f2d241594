package models

// PersonShare is one person's fractional ownership of a line item.
type PersonShare struct {
	PersonID string `json:"personId"`

	// Share is between 0 and 1.
	Share float64 `json:"share"`
}

// ItemAssignment lists every share recorded for one item.
// A complete assignment has shares summing to 1.0.
type ItemAssignment struct {
	ItemID      string        `json:"itemId"`
	Assignments []PersonShare `json:"assignments"`
}

// CloneAssignments deep-copies an assignment list.
func CloneAssignments(in []ItemAssignment) []ItemAssignment {
	if in == nil {
		return nil
	}
	out := make([]ItemAssignment, len(in))
	for i, a := range in {
		out[i] = ItemAssignment{ItemID: a.ItemID}
		if a.Assignments != nil {
			out[i].Assignments = make([]PersonShare, len(a.Assignments))
			copy(out[i].Assignments, a.Assignments)
		}
	}
	return out
}
