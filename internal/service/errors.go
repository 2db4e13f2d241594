package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/evenly/internal/ingest"
	"github.com/mmynk/evenly/internal/itemizer"
	"github.com/mmynk/evenly/internal/ledger"
)

// toConnectError maps domain errors to Connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, itemizer.ErrInvalidShare), errors.Is(err, ingest.ErrMalformedReceipt):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, itemizer.ErrShareExceeded):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, ledger.ErrReceiptNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func invalidArgument(msg string) error {
	return connect.NewError(connect.CodeInvalidArgument, errors.New(msg))
}
