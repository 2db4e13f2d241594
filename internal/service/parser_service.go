package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/evenly/internal/ingest"
	"github.com/mmynk/evenly/internal/models"
)

// ParseTextRequest carries OCR text and the payer's person ID.
type ParseTextRequest struct {
	Text   string `json:"text"`
	PaidBy string `json:"paidBy,omitempty"`
}

// ParseManualRequest carries a hand-entered receipt.
type ParseManualRequest struct {
	Receipt ingest.ManualReceipt `json:"receipt"`
}

// ParseResponse returns the parsed receipt.
type ParseResponse struct {
	Receipt models.Receipt `json:"receipt"`
}

// ParserService turns raw input into receipts. It does not store anything.
type ParserService struct {
	parser ingest.Parser
}

// NewParserService creates a ParserService.
func NewParserService(parser ingest.Parser) *ParserService {
	return &ParserService{parser: parser}
}

// NewParserServiceHandler builds an HTTP handler for every ParserService procedure.
func NewParserServiceHandler(svc *ParserService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return route(ParserServiceName, map[string]http.Handler{
		ParserServiceParseTextProcedure:   connect.NewUnaryHandler(ParserServiceParseTextProcedure, svc.ParseText, opts...),
		ParserServiceParseManualProcedure: connect.NewUnaryHandler(ParserServiceParseManualProcedure, svc.ParseManual, opts...),
	})
}

// ParseText parses OCR output into a receipt.
func (s *ParserService) ParseText(
	ctx context.Context,
	req *connect.Request[ParseTextRequest],
) (*connect.Response[ParseResponse], error) {
	receipt, err := s.parser.ParseText(req.Msg.Text, req.Msg.PaidBy)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("ParseText", "receipt_id", receipt.ID, "merchant", receipt.Merchant, "items", len(receipt.Items))

	return connect.NewResponse(&ParseResponse{Receipt: receipt}), nil
}

// ParseManual normalizes a hand-entered receipt.
func (s *ParserService) ParseManual(
	ctx context.Context,
	req *connect.Request[ParseManualRequest],
) (*connect.Response[ParseResponse], error) {
	receipt, err := s.parser.Manual(req.Msg.Receipt)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("ParseManual", "receipt_id", receipt.ID, "merchant", receipt.Merchant, "items", len(receipt.Items))

	return connect.NewResponse(&ParseResponse{Receipt: receipt}), nil
}
