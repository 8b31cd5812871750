/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package engine

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tomoncle/ledger/types"
)

// ErrorKind classifies ledger failures.
type ErrorKind int

const (
	KindAccountNotFound ErrorKind = iota + 1
	KindInvalidAmount
	KindInvalidOperation
	KindInsufficientFunds
	KindStorageFailure
)

var _ types.BaseEnum = KindAccountNotFound

var errorKinds = map[ErrorKind][2]string{
	KindAccountNotFound:   {"AccountNotFound", "account not found"},
	KindInvalidAmount:     {"InvalidAmount", "invalid amount"},
	KindInvalidOperation:  {"InvalidOperation", "invalid operation"},
	KindInsufficientFunds: {"InsufficientFunds", "insufficient funds"},
	KindStorageFailure:    {"StorageFailure", "storage failure"},
}

// ErrorKinds lists every valid kind in declaration order.
func ErrorKinds() []ErrorKind {
	return []ErrorKind{KindAccountNotFound, KindInvalidAmount, KindInvalidOperation, KindInsufficientFunds, KindStorageFailure}
}

func (k ErrorKind) IsValid() bool {
	_, ok := errorKinds[k]
	return ok
}

func (k ErrorKind) Number() int {
	if !k.IsValid() {
		return types.IllegalValue
	}
	return int(k)
}

func (k ErrorKind) Name() string {
	if !k.IsValid() {
		return types.IllegalName
	}
	return errorKinds[k][0]
}

func (k ErrorKind) Desc() string {
	if !k.IsValid() {
		return types.IllegalDesc
	}
	return errorKinds[k][1]
}

func (k ErrorKind) String() string { return k.Name() }

// Error is returned by every engine operation that fails for a ledger reason.
// Context errors from cancelled or timed-out lock waits are returned as is.
type Error struct {
	Kind      ErrorKind
	Op        string
	AccountID int64
	Err       error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrAccountNotFound   = &Error{Kind: KindAccountNotFound}
	ErrInvalidAmount     = &Error{Kind: KindInvalidAmount}
	ErrInvalidOperation  = &Error{Kind: KindInvalidOperation}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrStorageFailure    = &Error{Kind: KindStorageFailure}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("ledger: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Desc())
	if e.AccountID != 0 {
		b.WriteString(" (account ")
		b.WriteString(strconv.FormatInt(e.AccountID, 10))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind ErrorKind, op string, accountID int64, err error) *Error {
	return &Error{Kind: kind, Op: op, AccountID: accountID, Err: err}
}

var (
	errSelfTransfer   = errors.New("source and destination are the same account")
	errNonPositive    = errors.New("amount must be greater than zero")
	errNegativeAmount = errors.New("amount must not be negative")
	errEmptyOwner     = errors.New("owner must not be empty")
	errKeyReused      = errors.New("idempotency key already used for a different transfer")
)
