// Package abci provides ABCI 2.0 result codes and events for CometBFT v0.38.x
package abci

import (
	"errors"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/ahwlsqja/volrank/leaderboard"
	"github.com/ahwlsqja/volrank/types"
)

// Result codes returned in CheckTx, ExecTxResult and Query responses.
const (
	CodeTypeOK uint32 = iota
	CodeTypeEncodingError
	CodeTypeUnknownOperation
	CodeTypeInvalidAccount
	CodeTypeOverflow
	CodeTypeDivisionByZero
	CodeTypeMissingAccount
	CodeTypeUnknownQuery
	CodeTypeInternal
)

// Transaction and query validation errors.
type txError string

func (e txError) Error() string {
	return string(e)
}

const (
	ErrEncoding         = txError("malformed operation")
	ErrUnknownOperation = txError("unknown operation type")
	ErrInvalidAccount   = txError("invalid account")
	ErrUnknownQuery     = txError("unknown query path")
)

// codeForError maps an error to its result code.
func codeForError(err error) uint32 {
	switch {
	case err == nil:
		return CodeTypeOK
	case errors.Is(err, ErrEncoding):
		return CodeTypeEncodingError
	case errors.Is(err, ErrUnknownOperation):
		return CodeTypeUnknownOperation
	case errors.Is(err, ErrInvalidAccount):
		return CodeTypeInvalidAccount
	case errors.Is(err, types.ErrOverflow):
		return CodeTypeOverflow
	case errors.Is(err, types.ErrDivisionByZero):
		return CodeTypeDivisionByZero
	case errors.Is(err, leaderboard.ErrMissingAccount):
		return CodeTypeMissingAccount
	case errors.Is(err, ErrUnknownQuery):
		return CodeTypeUnknownQuery
	default:
		return CodeTypeInternal
	}
}

// ================================================================================
//                          Events
// ================================================================================

func attr(key, value string, index bool) abci.EventAttribute {
	return abci.EventAttribute{Key: key, Value: value, Index: index}
}

// updateEvent - update_list 결과 이벤트
func updateEvent(amount types.Volume, out leaderboard.Outcome) abci.Event {
	attrs := []abci.EventAttribute{
		attr("account", out.Account.String(), true),
		attr("amount", amount.String(), false),
		attr("volume", out.Volume.String(), false),
		attr("action", string(out.Action), true),
	}
	if out.Action == leaderboard.ActionEvicted {
		attrs = append(attrs, attr("evicted", out.Evicted.String(), true))
	}
	return abci.Event{Type: OpUpdateList, Attributes: attrs}
}

// operationEvent - 단순 연산 이벤트
func operationEvent(op *Operation) abci.Event {
	attrs := make([]abci.EventAttribute, 0, 2)
	if op.Account != "" {
		attrs = append(attrs, attr("account", op.Account.String(), true))
	}
	if op.Pool != nil {
		attrs = append(attrs, attr("pool", formatPool(*op.Pool), false))
	}
	return abci.Event{Type: op.Type, Attributes: attrs}
}
