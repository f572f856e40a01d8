package solana

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"
)

// TransactionErrorKey names a TransactionError variant as serialized by the
// RPC node, either as a bare string or as the single key of an object.
//
// Source: https://github.com/solana-labs/solana/blob/fc2bf2d3b669d1c6655ae48b0a05f470938f3676/sdk/src/transaction/mod.rs#L37
type TransactionErrorKey string

const (
	TransactionErrorAccountInUse            TransactionErrorKey = "AccountInUse"
	TransactionErrorAccountNotFound         TransactionErrorKey = "AccountNotFound"
	TransactionErrorInsufficientFundsForFee TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorAlreadyProcessed        TransactionErrorKey = "AlreadyProcessed"
	TransactionErrorBlockhashNotFound       TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorInstructionError        TransactionErrorKey = "InstructionError"
	TransactionErrorSignatureFailure        TransactionErrorKey = "SignatureFailure"
	TransactionErrorDuplicateSignature      TransactionErrorKey = "DuplicateSignature"
)

// InstructionErrorKey names an InstructionError variant.
//
// Source: https://github.com/solana-labs/solana/blob/4e2754341514cd181ae3f373cc2548bd22e918b8/sdk/program/src/instruction.rs#L23
type InstructionErrorKey string

const (
	InstructionErrorInvalidArgument           InstructionErrorKey = "InvalidArgument"
	InstructionErrorInvalidInstructionData    InstructionErrorKey = "InvalidInstructionData"
	InstructionErrorInsufficientFunds         InstructionErrorKey = "InsufficientFunds"
	InstructionErrorMissingRequiredSignature  InstructionErrorKey = "MissingRequiredSignature"
	InstructionErrorAccountAlreadyInitialized InstructionErrorKey = "AccountAlreadyInitialized"
	InstructionErrorComputationalBudget       InstructionErrorKey = "ComputationalBudgetExceeded"
	InstructionErrorCustom                    InstructionErrorKey = "Custom"
)

// The system program reports AccountAlreadyInUse as custom error 0
const systemErrorAccountAlreadyInUse CustomError = 0

// CustomError is a program specific error code
type CustomError int

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: %x", int(c))
}

// InstructionError is the failure of the instruction at Index
type InstructionError struct {
	Index int
	Err   error
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", i.Index, i.Err)
}

func (i InstructionError) ErrorKey() InstructionErrorKey {
	switch i.Err.(type) {
	case nil:
		return ""
	case CustomError:
		return InstructionErrorCustom
	default:
		return InstructionErrorKey(i.Err.Error())
	}
}

// CustomError returns the program's code when the instruction failed with one
func (i InstructionError) CustomError() *CustomError {
	if custom, ok := i.Err.(CustomError); ok {
		return &custom
	}
	return nil
}

// TransactionError is a failed transaction result. It keeps the payload
// reported by the node alongside the parsed form.
type TransactionError struct {
	key         TransactionErrorKey
	instruction *InstructionError
	raw         interface{}
}

func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{key: key, raw: string(key)}
}

// NewInstructionTransactionError builds the error reported when instruction
// index failed with err.
func NewInstructionTransactionError(index int, err error) *TransactionError {
	var detail interface{} = err.Error()
	if custom, ok := err.(CustomError); ok {
		detail = map[string]interface{}{string(InstructionErrorCustom): float64(custom)}
	}

	return &TransactionError{
		key:         TransactionErrorInstructionError,
		instruction: &InstructionError{Index: index, Err: err},
		raw: map[string]interface{}{
			string(TransactionErrorInstructionError): []interface{}{float64(index), detail},
		},
	}
}

// ParseRPCError extracts the transaction error carried in the data of a
// failed sendTransaction call. It returns nil when there is none.
func ParseRPCError(err *jsonrpc.RPCError) (*TransactionError, error) {
	if err == nil {
		return nil, nil
	}

	data, ok := err.Data.(map[string]interface{})
	if !ok {
		return nil, errors.New("expected map type")
	}
	return ParseTransactionError(data["err"])
}

// ParseTransactionError parses the "err" field of RPC results. Payloads with
// an unrecognised shape still yield a TransactionError holding the raw value,
// along with a non nil error.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &TransactionError{key: TransactionErrorKey(t), raw: raw}, nil
	case map[string]interface{}:
		unhandled := &TransactionError{key: "unhandled transaction error", raw: raw}

		k, v, err := soleEntry(t)
		if err != nil {
			return unhandled, errors.Wrap(err, "invalid transaction error")
		}
		if k != string(TransactionErrorInstructionError) {
			return &TransactionError{key: TransactionErrorKey(k), raw: raw}, nil
		}

		instruction, err := parseInstructionError(v)
		if err != nil {
			return unhandled, errors.Wrap(err, "failed to parse instruction error")
		}
		return &TransactionError{
			key:         TransactionErrorInstructionError,
			instruction: &instruction,
			raw:         raw,
		}, nil
	default:
		return nil, errors.Errorf("unhandled error type %T", raw)
	}
}

// parseInstructionError parses the [index, detail] tuple of an
// InstructionError, where detail is a variant name or {"Custom": code}
func parseInstructionError(v interface{}) (InstructionError, error) {
	tuple, ok := v.([]interface{})
	if !ok {
		return InstructionError{}, errors.New("unexpected instruction error format")
	}
	if len(tuple) != 2 {
		return InstructionError{}, errors.Errorf("unexpected InstructionError tuple size: %d", len(tuple))
	}

	index, err := parseJSONNumber(tuple[0])
	if err != nil {
		return InstructionError{}, err
	}
	e := InstructionError{Index: index}

	switch detail := tuple[1].(type) {
	case string:
		e.Err = errors.New(detail)
	case map[string]interface{}:
		k, v, err := soleEntry(detail)
		if err != nil {
			return e, errors.Wrap(err, "invalid instruction error")
		}
		if k != string(InstructionErrorCustom) {
			e.Err = errors.New(k)
			break
		}

		code, err := parseJSONNumber(v)
		if err != nil {
			e.Err = errors.New("unhandled CustomError")
			break
		}
		e.Err = CustomError(code)
	}

	return e, nil
}

func (t TransactionError) Error() string {
	if t.instruction != nil {
		return t.instruction.Error()
	}
	return string(t.key)
}

func (t TransactionError) ErrorKey() TransactionErrorKey {
	return t.key
}

func (t TransactionError) InstructionError() *InstructionError {
	return t.instruction
}

// Raw returns the error payload exactly as reported by the network.
func (t TransactionError) Raw() interface{} {
	return t.raw
}

func (t TransactionError) JSONString() (string, error) {
	b, err := json.Marshal(t.raw)
	return string(b), err
}

// IndicatesPriorLanding reports whether the error means an earlier submission
// of the same transaction, or of another one creating the same mint, already
// executed. Custom error 0 only counts when raised by the account creation
// instructions at the front of a mint transaction.
func (t TransactionError) IndicatesPriorLanding() bool {
	switch t.key {
	case TransactionErrorAlreadyProcessed:
		return true
	case TransactionErrorInstructionError:
		if t.instruction == nil {
			return false
		}
		if t.instruction.ErrorKey() == InstructionErrorAccountAlreadyInitialized {
			return true
		}
		if custom := t.instruction.CustomError(); custom != nil {
			return *custom == systemErrorAccountAlreadyInUse && t.instruction.Index <= 2
		}
	}
	return false
}

// soleEntry unpacks the single key object used for enum variants with data
func soleEntry(m map[string]interface{}) (string, interface{}, error) {
	if len(m) != 1 {
		return "", nil, errors.Errorf("expected one entry, got %d", len(m))
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", nil, nil
}

// parseJSONNumber accepts the number encodings produced by the json decoder,
// with or without UseNumber, as well as numeric strings
func parseJSONNumber(v interface{}) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, errors.Errorf("non int64 value in InstructionError tuple: %v", v)
		}
		return int(i), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, errors.Errorf("non numeric value in InstructionError tuple: %v", v)
		}
		return int(i), nil
	case float64:
		return int(n), nil
	default:
		return 0, errors.Errorf("non numeric value in InstructionError tuple: %v", v)
	}
}
