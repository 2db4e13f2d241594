package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"connectrpc.com/connect"

	"github.com/mmynk/evenly/internal/calculator"
	"github.com/mmynk/evenly/internal/events"
	"github.com/mmynk/evenly/internal/itemizer"
	"github.com/mmynk/evenly/internal/ledger"
	"github.com/mmynk/evenly/internal/models"
	"github.com/mmynk/evenly/internal/storage"
	"github.com/mmynk/evenly/internal/storage/memory"
)

// AddPersonRequest registers a person by display name.
type AddPersonRequest struct {
	DisplayName string `json:"displayName"`
}

// AddPersonResponse returns the person with its generated ID.
type AddPersonResponse struct {
	Person models.Person `json:"person"`
}

// AddReceiptRequest stores or replaces a receipt with its assignments.
type AddReceiptRequest struct {
	Receipt     models.Receipt          `json:"receipt"`
	Assignments []models.ItemAssignment `json:"assignments"`

	// FromItemizer commits the shares staged for this receipt instead of
	// Assignments, then clears the staging area. Sending both is rejected.
	FromItemizer bool `json:"fromItemizer,omitempty"`

	// Validate rejects the receipt unless every item is fully assigned.
	Validate bool `json:"validate,omitempty"`
}

// AddReceiptResponse echoes the stored receipt and assignments.
type AddReceiptResponse struct {
	Receipt     models.Receipt          `json:"receipt"`
	Assignments []models.ItemAssignment `json:"assignments"`
}

// UpdateReceiptRequest applies a partial update to a stored receipt.
type UpdateReceiptRequest struct {
	ReceiptID string              `json:"receiptId"`
	Patch     models.ReceiptPatch `json:"patch"`
}

// UpdateReceiptResponse returns the merged receipt.
type UpdateReceiptResponse struct {
	Receipt models.Receipt `json:"receipt"`
}

// DeleteReceiptRequest names the receipt to remove.
type DeleteReceiptRequest struct {
	ReceiptID string `json:"receiptId"`
}

// DeleteReceiptResponse is empty.
type DeleteReceiptResponse struct{}

// GetBalanceRequest is empty.
type GetBalanceRequest struct{}

// GetBalanceResponse carries the ledger snapshot.
type GetBalanceResponse struct {
	Balance models.Balance `json:"balance"`
}

// GetNetBalancesRequest is empty.
type GetNetBalancesRequest struct{}

// GetNetBalancesResponse lists paid, owed and net amounts per person.
type GetNetBalancesResponse struct {
	Balances []calculator.MemberBalance `json:"balances"`
}

// CalculateSettlementsRequest is empty.
type CalculateSettlementsRequest struct{}

// CalculateSettlementsResponse lists the transfers that settle all balances.
type CalculateSettlementsResponse struct {
	Settlements []models.Settlement `json:"settlements"`
}

// LedgerObserver is told about ledger activity, typically to export metrics.
type LedgerObserver interface {
	ObserveSettlements(transfers int)
	SetReceipts(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveSettlements(int) {}
func (nopObserver) SetReceipts(int)        {}

// LedgerDeps wires a LedgerService. Only Ledger and Itemizer are required;
// the rest default to an in-memory store, no events and no metrics.
type LedgerDeps struct {
	Ledger    *ledger.Ledger
	Itemizer  *itemizer.Itemizer
	Store     storage.Store
	Publisher events.Publisher
	Observer  LedgerObserver
}

// LedgerService exposes the ledger over Connect and mirrors every change
// to the store.
type LedgerService struct {
	ledger    *ledger.Ledger
	itemizer  *itemizer.Itemizer
	store     storage.Store
	publisher events.Publisher
	observer  LedgerObserver

	// persistMu orders store writes so the store converges on ledger state.
	persistMu sync.Mutex
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(deps LedgerDeps) *LedgerService {
	s := &LedgerService{
		ledger:    deps.Ledger,
		itemizer:  deps.Itemizer,
		store:     deps.Store,
		publisher: deps.Publisher,
		observer:  deps.Observer,
	}
	if s.store == nil {
		s.store = memory.New()
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	s.observer.SetReceipts(s.ledger.ReceiptCount())
	return s
}

// NewLedgerServiceHandler builds an HTTP handler for every LedgerService procedure.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return route(LedgerServiceName, map[string]http.Handler{
		LedgerServiceAddPersonProcedure:            connect.NewUnaryHandler(LedgerServiceAddPersonProcedure, svc.AddPerson, opts...),
		LedgerServiceAddReceiptProcedure:           connect.NewUnaryHandler(LedgerServiceAddReceiptProcedure, svc.AddReceipt, opts...),
		LedgerServiceUpdateReceiptProcedure:        connect.NewUnaryHandler(LedgerServiceUpdateReceiptProcedure, svc.UpdateReceipt, opts...),
		LedgerServiceDeleteReceiptProcedure:        connect.NewUnaryHandler(LedgerServiceDeleteReceiptProcedure, svc.DeleteReceipt, opts...),
		LedgerServiceGetBalanceProcedure:           connect.NewUnaryHandler(LedgerServiceGetBalanceProcedure, svc.GetBalance, opts...),
		LedgerServiceGetNetBalancesProcedure:       connect.NewUnaryHandler(LedgerServiceGetNetBalancesProcedure, svc.GetNetBalances, opts...),
		LedgerServiceCalculateSettlementsProcedure: connect.NewUnaryHandler(LedgerServiceCalculateSettlementsProcedure, svc.CalculateSettlements, opts...),
	})
}

// AddPerson registers a new person.
func (s *LedgerService) AddPerson(
	ctx context.Context,
	req *connect.Request[AddPersonRequest],
) (*connect.Response[AddPersonResponse], error) {
	name := strings.TrimSpace(req.Msg.DisplayName)
	if name == "" {
		return nil, invalidArgument("display name is required")
	}

	person := s.ledger.AddPerson(name)
	slog.Info("AddPerson", "person_id", person.ID, "display_name", person.DisplayName)

	if err := s.persist(ctx, "person", func(ctx context.Context) error {
		return s.store.SavePerson(ctx, person)
	}); err != nil {
		return nil, err
	}

	e := events.New(events.PersonAdded)
	e.PersonID = person.ID
	s.publish(ctx, e)

	return connect.NewResponse(&AddPersonResponse{Person: person}), nil
}

// AddReceipt stores a receipt with its assignments, replacing any receipt
// with the same ID.
func (s *LedgerService) AddReceipt(
	ctx context.Context,
	req *connect.Request[AddReceiptRequest],
) (*connect.Response[AddReceiptResponse], error) {
	receipt := req.Msg.Receipt
	if receipt.ID == "" {
		return nil, invalidArgument("receipt id is required")
	}

	assignments := req.Msg.Assignments
	if req.Msg.FromItemizer {
		if len(assignments) > 0 {
			return nil, invalidArgument("assignments and fromItemizer are mutually exclusive")
		}
		assignments = s.itemizer.GetAssignments(receipt.ID)
	}

	if req.Msg.Validate {
		if missing := itemizer.Incomplete(receipt, assignments); len(missing) > 0 {
			return nil, invalidArgument(fmt.Sprintf("items not fully assigned: %s", strings.Join(missing, ", ")))
		}
	}

	s.ledger.AddReceipt(receipt, assignments)
	if req.Msg.FromItemizer {
		s.itemizer.Clear(receipt.ID)
	}
	s.observer.SetReceipts(s.ledger.ReceiptCount())

	slog.Info("AddReceipt",
		"receipt_id", receipt.ID,
		"items", len(receipt.Items),
		"assignments", len(assignments),
		"paid_by", receipt.PaidBy,
	)

	if err := s.syncReceipt(ctx, receipt.ID); err != nil {
		return nil, err
	}
	s.publishReceipt(ctx, events.ReceiptSaved, receipt.ID)

	return connect.NewResponse(&AddReceiptResponse{
		Receipt:     receipt,
		Assignments: assignments,
	}), nil
}

// UpdateReceipt applies a partial update to a stored receipt.
func (s *LedgerService) UpdateReceipt(
	ctx context.Context,
	req *connect.Request[UpdateReceiptRequest],
) (*connect.Response[UpdateReceiptResponse], error) {
	if req.Msg.ReceiptID == "" {
		return nil, invalidArgument("receipt id is required")
	}

	updated, err := s.ledger.UpdateReceipt(req.Msg.ReceiptID, req.Msg.Patch)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("UpdateReceipt", "receipt_id", updated.ID)

	if err := s.syncReceipt(ctx, updated.ID); err != nil {
		return nil, err
	}
	s.publishReceipt(ctx, events.ReceiptSaved, updated.ID)

	return connect.NewResponse(&UpdateReceiptResponse{Receipt: updated}), nil
}

// DeleteReceipt removes a receipt. Unknown IDs succeed.
func (s *LedgerService) DeleteReceipt(
	ctx context.Context,
	req *connect.Request[DeleteReceiptRequest],
) (*connect.Response[DeleteReceiptResponse], error) {
	id := req.Msg.ReceiptID
	if id == "" {
		return nil, invalidArgument("receipt id is required")
	}

	s.ledger.DeleteReceipt(id)
	s.itemizer.Clear(id)
	s.observer.SetReceipts(s.ledger.ReceiptCount())
	slog.Info("DeleteReceipt", "receipt_id", id)

	if err := s.syncReceipt(ctx, id); err != nil {
		return nil, err
	}
	s.publishReceipt(ctx, events.ReceiptDeleted, id)

	return connect.NewResponse(&DeleteReceiptResponse{}), nil
}

// GetBalance returns the current ledger snapshot without recalculating.
func (s *LedgerService) GetBalance(
	ctx context.Context,
	req *connect.Request[GetBalanceRequest],
) (*connect.Response[GetBalanceResponse], error) {
	return connect.NewResponse(&GetBalanceResponse{Balance: s.ledger.GetBalance()}), nil
}

// GetNetBalances returns paid, owed and net totals per person.
func (s *LedgerService) GetNetBalances(
	ctx context.Context,
	req *connect.Request[GetNetBalancesRequest],
) (*connect.Response[GetNetBalancesResponse], error) {
	return connect.NewResponse(&GetNetBalancesResponse{Balances: s.ledger.NetBalances()}), nil
}

// CalculateSettlements recomputes the transfers that settle every balance.
func (s *LedgerService) CalculateSettlements(
	ctx context.Context,
	req *connect.Request[CalculateSettlementsRequest],
) (*connect.Response[CalculateSettlementsResponse], error) {
	settlements := s.ledger.CalculateSettlements()
	s.observer.ObserveSettlements(len(settlements))
	slog.Info("CalculateSettlements", "transfers", len(settlements))

	if err := s.persist(ctx, "settlements", func(ctx context.Context) error {
		return s.store.SaveSettlements(ctx, settlements)
	}); err != nil {
		return nil, err
	}

	e := events.New(events.SettlementsCalculated)
	e.Settlements = settlements
	s.publish(ctx, e)

	return connect.NewResponse(&CalculateSettlementsResponse{Settlements: settlements}), nil
}

// syncReceipt writes the ledger's current view of a receipt to the store,
// deleting it there when the ledger no longer has it.
func (s *LedgerService) syncReceipt(ctx context.Context, receiptID string) error {
	return s.persist(ctx, "receipt", func(ctx context.Context) error {
		record, ok := s.ledger.Receipt(receiptID)
		if !ok {
			return s.store.DeleteReceipt(ctx, receiptID)
		}
		return s.store.SaveReceipt(ctx, record)
	})
}

// persist runs a store write. The ledger has already changed, so a failure
// is reported to the caller but nothing is rolled back.
func (s *LedgerService) persist(ctx context.Context, what string, write func(context.Context) error) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := write(ctx); err != nil {
		slog.Error("Failed to persist ledger change", "what", what, "error", err)
		return connect.NewError(connect.CodeInternal, fmt.Errorf("persist %s: %w", what, err))
	}
	return nil
}

func (s *LedgerService) publishReceipt(ctx context.Context, t events.Type, receiptID string) {
	e := events.New(t)
	e.ReceiptID = receiptID
	s.publish(ctx, e)
}

// publish logs delivery failures; events never fail the RPC.
func (s *LedgerService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		slog.Warn("Failed to publish event", "type", e.Type, "error", err)
	}
}
