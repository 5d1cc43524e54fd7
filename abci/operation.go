package abci

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ahwlsqja/volrank/types"
)

// Operation types carried in transactions.
const (
	OpUpdateList       = "update_list"
	OpDelete           = "delete"
	OpSetPool          = "set_pool"
	OpSetPoolToDefault = "set_pool_to_default"
	OpClear            = "clear"
)

// Operation represents one state-changing call.
type Operation struct {
	Type    string        `json:"type"`
	Account types.Account `json:"account,omitempty"`
	Amount  *types.Volume `json:"amount,omitempty"` // 10진 문자열
	Pool    *uint32       `json:"pool,omitempty"`
}

// NewUpdateOperation builds an update_list operation.
func NewUpdateOperation(acc types.Account, amount types.Volume) Operation {
	return Operation{Type: OpUpdateList, Account: acc, Amount: &amount}
}

// NewDeleteOperation builds a delete operation.
func NewDeleteOperation(acc types.Account) Operation {
	return Operation{Type: OpDelete, Account: acc}
}

// NewSetPoolOperation builds a set_pool operation.
func NewSetPoolOperation(pool uint32) Operation {
	return Operation{Type: OpSetPool, Pool: &pool}
}

// Encode returns the transaction bytes.
func (op Operation) Encode() ([]byte, error) {
	return json.Marshal(op)
}

// DecodeOperation parses and validates transaction bytes.
func DecodeOperation(tx []byte) (*Operation, error) {
	if len(tx) == 0 {
		return nil, fmt.Errorf("%w: transaction is empty", ErrEncoding)
	}
	var op Operation
	if err := json.Unmarshal(tx, &op); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	return &op, nil
}

// Validate checks that the operation carries the fields its type needs.
func (op *Operation) Validate() error {
	switch op.Type {
	case OpUpdateList:
		if err := validateAccount(op.Account); err != nil {
			return err
		}
		if op.Amount == nil {
			return fmt.Errorf("%w: %s requires an amount", ErrEncoding, op.Type)
		}
	case OpDelete:
		if err := validateAccount(op.Account); err != nil {
			return err
		}
	case OpSetPool:
		if op.Pool == nil {
			return fmt.Errorf("%w: %s requires a pool", ErrEncoding, op.Type)
		}
	case OpSetPoolToDefault, OpClear:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
	}
	return nil
}

// validateAccount refuses empty tokens and the empty-slot sentinel.
func validateAccount(acc types.Account) error {
	if acc == "" {
		return fmt.Errorf("%w: account is empty", ErrInvalidAccount)
	}
	if acc.IsDefault() {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidAccount, acc)
	}
	return nil
}

func formatPool(pool uint32) string {
	return strconv.FormatUint(uint64(pool), 10)
}
