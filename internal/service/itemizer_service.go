package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/evenly/internal/itemizer"
	"github.com/mmynk/evenly/internal/models"
)

// AssignItemRequest stages one person's share of a receipt item.
type AssignItemRequest struct {
	ReceiptID string  `json:"receiptId"`
	ItemID    string  `json:"itemId"`
	PersonID  string  `json:"personId"`
	Share     float64 `json:"share"`
}

// AssignItemResponse carries the receipt's staged assignments after the change.
type AssignItemResponse struct {
	Assignments []models.ItemAssignment `json:"assignments"`
}

// GetAssignmentsRequest names the receipt whose staged assignments to read.
type GetAssignmentsRequest struct {
	ReceiptID string `json:"receiptId"`
}

// GetAssignmentsResponse lists staged assignments in first-assigned order.
type GetAssignmentsResponse struct {
	Assignments []models.ItemAssignment `json:"assignments"`
}

// ValidateAssignmentsRequest checks a receipt against explicit or staged assignments.
type ValidateAssignmentsRequest struct {
	Receipt models.Receipt `json:"receipt"`

	// Assignments defaults to the shares staged for the receipt when omitted.
	Assignments []models.ItemAssignment `json:"assignments,omitempty"`
}

// ValidateAssignmentsResponse reports whether every item is fully assigned.
type ValidateAssignmentsResponse struct {
	Valid           bool     `json:"valid"`
	IncompleteItems []string `json:"incompleteItems,omitempty"`
}

// ClearAssignmentsRequest names the receipt whose staging to drop.
type ClearAssignmentsRequest struct {
	ReceiptID string `json:"receiptId"`
}

// ClearAssignmentsResponse is empty.
type ClearAssignmentsResponse struct{}

// ItemizerService exposes the staging area for item shares.
type ItemizerService struct {
	itemizer *itemizer.Itemizer
}

// NewItemizerService creates an ItemizerService.
func NewItemizerService(it *itemizer.Itemizer) *ItemizerService {
	return &ItemizerService{itemizer: it}
}

// NewItemizerServiceHandler builds an HTTP handler for every ItemizerService procedure.
func NewItemizerServiceHandler(svc *ItemizerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return route(ItemizerServiceName, map[string]http.Handler{
		ItemizerServiceAssignItemProcedure:          connect.NewUnaryHandler(ItemizerServiceAssignItemProcedure, svc.AssignItem, opts...),
		ItemizerServiceGetAssignmentsProcedure:      connect.NewUnaryHandler(ItemizerServiceGetAssignmentsProcedure, svc.GetAssignments, opts...),
		ItemizerServiceValidateAssignmentsProcedure: connect.NewUnaryHandler(ItemizerServiceValidateAssignmentsProcedure, svc.ValidateAssignments, opts...),
		ItemizerServiceClearAssignmentsProcedure:    connect.NewUnaryHandler(ItemizerServiceClearAssignmentsProcedure, svc.ClearAssignments, opts...),
	})
}

// AssignItem stages a share of an item for a person and returns the
// receipt's staged assignments.
func (s *ItemizerService) AssignItem(
	ctx context.Context,
	req *connect.Request[AssignItemRequest],
) (*connect.Response[AssignItemResponse], error) {
	msg := req.Msg
	if msg.ReceiptID == "" || msg.ItemID == "" || msg.PersonID == "" {
		return nil, invalidArgument("receipt id, item id and person id are required")
	}

	if err := s.itemizer.Assign(msg.ReceiptID, msg.ItemID, msg.PersonID, msg.Share); err != nil {
		return nil, toConnectError(err)
	}
	slog.Debug("AssignItem",
		"receipt_id", msg.ReceiptID,
		"item_id", msg.ItemID,
		"person_id", msg.PersonID,
		"share", msg.Share,
	)

	return connect.NewResponse(&AssignItemResponse{
		Assignments: s.itemizer.GetAssignments(msg.ReceiptID),
	}), nil
}

// GetAssignments returns the shares staged for a receipt.
func (s *ItemizerService) GetAssignments(
	ctx context.Context,
	req *connect.Request[GetAssignmentsRequest],
) (*connect.Response[GetAssignmentsResponse], error) {
	return connect.NewResponse(&GetAssignmentsResponse{
		Assignments: s.itemizer.GetAssignments(req.Msg.ReceiptID),
	}), nil
}

// ValidateAssignments reports whether every receipt item is fully assigned.
func (s *ItemizerService) ValidateAssignments(
	ctx context.Context,
	req *connect.Request[ValidateAssignmentsRequest],
) (*connect.Response[ValidateAssignmentsResponse], error) {
	assignments := req.Msg.Assignments
	if assignments == nil {
		assignments = s.itemizer.GetAssignments(req.Msg.Receipt.ID)
	}

	incomplete := itemizer.Incomplete(req.Msg.Receipt, assignments)
	return connect.NewResponse(&ValidateAssignmentsResponse{
		Valid:           len(incomplete) == 0,
		IncompleteItems: incomplete,
	}), nil
}

// ClearAssignments drops the shares staged for a receipt.
func (s *ItemizerService) ClearAssignments(
	ctx context.Context,
	req *connect.Request[ClearAssignmentsRequest],
) (*connect.Response[ClearAssignmentsResponse], error) {
	s.itemizer.Clear(req.Msg.ReceiptID)
	return connect.NewResponse(&ClearAssignmentsResponse{}), nil
}
