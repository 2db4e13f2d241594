// Package models defines the core domain models for Evenly.
//
// # Models
//
//   - Person: a participant, identified by a ledger-generated ID
//   - Receipt / ReceiptItem: one purchase and its line items
//   - ItemAssignment / PersonShare: fractional ownership of line items
//   - Settlement: a directed payment instruction
//   - Balance: a snapshot of the whole ledger
//
// # Design Principles
//
// 1. **Plain values**: models carry no behavior beyond copying and merging
// 2. **IDs, not pointers**: relationships are expressed as ID strings
// 3. **Wire-compatible**: JSON tags match the API field names (paidBy, itemId, ...)
//
// Money is float64 and rounded to 2 decimals wherever it is produced
// (ingestion and settlement). Intermediate settlement math is not rounded.
package models
