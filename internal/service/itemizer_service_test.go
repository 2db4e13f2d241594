package service

import (
	"context"
	"reflect"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/evenly/internal/models"
)

func TestItemizerService(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	assign := func(itemID, personID string, share float64) error {
		_, err := env.clients.assignItem.CallUnary(ctx, connect.NewRequest(&AssignItemRequest{
			ReceiptID: "r1", ItemID: itemID, PersonID: personID, Share: share,
		}))
		return err
	}

	t.Run("assign and read back", func(t *testing.T) {
		if err := assign("i1", "p1", 0.6); err != nil {
			t.Fatalf("AssignItem failed: %v", err)
		}
		if err := assign("i1", "p2", 0.4); err != nil {
			t.Fatalf("AssignItem failed: %v", err)
		}

		resp, err := env.clients.getAssignments.CallUnary(ctx, connect.NewRequest(&GetAssignmentsRequest{ReceiptID: "r1"}))
		if err != nil {
			t.Fatalf("GetAssignments failed: %v", err)
		}
		want := []models.ItemAssignment{{ItemID: "i1", Assignments: []models.PersonShare{
			{PersonID: "p1", Share: 0.6}, {PersonID: "p2", Share: 0.4},
		}}}
		if !reflect.DeepEqual(resp.Msg.Assignments, want) {
			t.Errorf("assignments = %+v, want %+v", resp.Msg.Assignments, want)
		}
	})

	t.Run("share errors map to codes", func(t *testing.T) {
		assertCode(t, assign("i1", "p3", 0.1), connect.CodeFailedPrecondition)
		assertCode(t, assign("i2", "p3", 1.5), connect.CodeInvalidArgument)
		assertCode(t, assign("", "p3", 0.5), connect.CodeInvalidArgument)
	})

	t.Run("validate staged and explicit assignments", func(t *testing.T) {
		receipt := models.Receipt{ID: "r1", Items: []models.ReceiptItem{
			{ID: "i1", Price: 5, Quantity: 1},
			{ID: "i2", Price: 7, Quantity: 1},
		}}

		resp, err := env.clients.validateAssignments.CallUnary(ctx, connect.NewRequest(&ValidateAssignmentsRequest{Receipt: receipt}))
		if err != nil {
			t.Fatalf("ValidateAssignments failed: %v", err)
		}
		if resp.Msg.Valid || !reflect.DeepEqual(resp.Msg.IncompleteItems, []string{"i2"}) {
			t.Errorf("staged validation = %+v", resp.Msg)
		}

		resp, err = env.clients.validateAssignments.CallUnary(ctx, connect.NewRequest(&ValidateAssignmentsRequest{
			Receipt: receipt,
			Assignments: []models.ItemAssignment{
				{ItemID: "i1", Assignments: []models.PersonShare{{PersonID: "p1", Share: 1}}},
				{ItemID: "i2", Assignments: []models.PersonShare{{PersonID: "p1", Share: 1}}},
			},
		}))
		if err != nil {
			t.Fatalf("ValidateAssignments failed: %v", err)
		}
		if !resp.Msg.Valid || len(resp.Msg.IncompleteItems) != 0 {
			t.Errorf("explicit validation = %+v", resp.Msg)
		}
	})

	t.Run("clear", func(t *testing.T) {
		if _, err := env.clients.clearAssignments.CallUnary(ctx, connect.NewRequest(&ClearAssignmentsRequest{ReceiptID: "r1"})); err != nil {
			t.Fatalf("ClearAssignments failed: %v", err)
		}
		resp, err := env.clients.getAssignments.CallUnary(ctx, connect.NewRequest(&GetAssignmentsRequest{ReceiptID: "r1"}))
		if err != nil {
			t.Fatalf("GetAssignments failed: %v", err)
		}
		if len(resp.Msg.Assignments) != 0 {
			t.Errorf("assignments after clear = %+v", resp.Msg.Assignments)
		}
	})
}
