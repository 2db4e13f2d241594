package service

import (
	"net/http"

	"connectrpc.com/connect"
)

const (
	LedgerServiceName   = "evenly.v1.LedgerService"
	ItemizerServiceName = "evenly.v1.ItemizerService"
	ParserServiceName   = "evenly.v1.ParserService"
)

const (
	LedgerServiceAddPersonProcedure            = "/" + LedgerServiceName + "/AddPerson"
	LedgerServiceAddReceiptProcedure           = "/" + LedgerServiceName + "/AddReceipt"
	LedgerServiceUpdateReceiptProcedure        = "/" + LedgerServiceName + "/UpdateReceipt"
	LedgerServiceDeleteReceiptProcedure        = "/" + LedgerServiceName + "/DeleteReceipt"
	LedgerServiceGetBalanceProcedure           = "/" + LedgerServiceName + "/GetBalance"
	LedgerServiceGetNetBalancesProcedure       = "/" + LedgerServiceName + "/GetNetBalances"
	LedgerServiceCalculateSettlementsProcedure = "/" + LedgerServiceName + "/CalculateSettlements"

	ItemizerServiceAssignItemProcedure          = "/" + ItemizerServiceName + "/AssignItem"
	ItemizerServiceGetAssignmentsProcedure      = "/" + ItemizerServiceName + "/GetAssignments"
	ItemizerServiceValidateAssignmentsProcedure = "/" + ItemizerServiceName + "/ValidateAssignments"
	ItemizerServiceClearAssignmentsProcedure    = "/" + ItemizerServiceName + "/ClearAssignments"

	ParserServiceParseTextProcedure   = "/" + ParserServiceName + "/ParseText"
	ParserServiceParseManualProcedure = "/" + ParserServiceName + "/ParseManual"
)

// route dispatches on the exact procedure path, the way generated Connect
// handlers do, and returns the service prefix to mount it under.
func route(serviceName string, handlers map[string]http.Handler) (string, http.Handler) {
	return "/" + serviceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{WithJSONCodec()}, opts...)
}
