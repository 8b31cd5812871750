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
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/ledger/events"
	"github.com/tomoncle/ledger/model"
	"github.com/tomoncle/ledger/types"
	"github.com/tomoncle/ledger/utils"
)

const (
	opTransfer    = "transfer"
	opOpenAccount = "open account"
	opGetAccount  = "get account"
	opList        = "list accounts"
	opListLog     = "list transfers"
)

// TransferRequest is the full form of a transfer. A non-empty IdempotencyKey
// makes resubmission return the original record instead of moving money twice.
type TransferRequest struct {
	FromID         int64
	ToID           int64
	Amount         decimal.Decimal
	IdempotencyKey string
	Metadata       types.JsonObject
}

// Engine moves money between accounts. Transfers touching a common account
// run one at a time; transfers on disjoint accounts run in parallel.
type Engine struct {
	uow         UnitOfWork
	log         logrus.FieldLogger
	publisher   events.Publisher
	topic       string
	lockTimeout time.Duration

	locks    *lockTable
	commitMu sync.Mutex
	clock    monotonicClock
}

type Option func(*Engine)

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithPublisher publishes a TransferCompleted event to topic after each commit.
func WithPublisher(p events.Publisher, topic string) Option {
	return func(e *Engine) {
		e.publisher = p
		if topic != "" {
			e.topic = topic
		}
	}
}

// WithClock replaces the wall clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock.now = now
		}
	}
}

// WithLockTimeout bounds how long a transfer waits for its account locks.
// Zero waits as long as the caller's context allows.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.lockTimeout = d
	}
}

func New(uow UnitOfWork, opts ...Option) *Engine {
	e := &Engine{
		uow:   uow,
		log:   utils.NewLogger("LEDGER"),
		topic: events.TopicTransferCompleted,
		locks: newLockTable(),
		clock: monotonicClock{now: time.Now},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transfer moves amount from one account to another.
func (e *Engine) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (*model.TransferRecord, error) {
	return e.Submit(ctx, TransferRequest{FromID: fromID, ToID: toID, Amount: amount})
}

// Submit validates and applies a transfer. Checks run in this order and the
// first failure wins: distinct accounts, both accounts exist, positive
// amount, sufficient funds. A rejected transfer changes nothing.
//
// ctx may cancel the transfer only while it waits for account locks. Once the
// locks are held the transfer commits or rolls back fully. The event is
// published after the locks are released.
func (e *Engine) Submit(ctx context.Context, req TransferRequest) (*model.TransferRecord, error) {
	if req.FromID == req.ToID {
		return nil, e.reject(newError(KindInvalidOperation, opTransfer, req.FromID, errSelfTransfer))
	}

	lockCtx := ctx
	if e.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, e.lockTimeout)
		defer cancel()
	}
	unlock, err := e.locks.acquirePair(lockCtx, req.FromID, req.ToID)
	if err != nil {
		e.log.WithFields(transferFields(req)).WithError(err).Debug("Transfer abandoned while waiting for account locks")
		return nil, err
	}

	applyCtx := context.WithoutCancel(ctx)
	rec, applied, err := func() (*model.TransferRecord, bool, error) {
		defer unlock()
		return e.apply(applyCtx, req)
	}()
	if err != nil {
		return nil, err
	}
	if !applied {
		e.log.WithFields(transferFields(req)).WithField("transfer_id", rec.ID).Debug("Transfer replayed by idempotency key")
		return rec, nil
	}

	e.log.WithFields(transferFields(req)).WithField("transfer_id", rec.ID).Info("Transfer committed")
	e.publish(applyCtx, rec)
	return rec, nil
}

// apply runs the transfer inside one unit of work. It reports applied=false
// when an earlier transfer with the same idempotency key is returned instead.
func (e *Engine) apply(ctx context.Context, req TransferRequest) (*model.TransferRecord, bool, error) {
	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, false, e.storageFailure(opTransfer, 0, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if req.IdempotencyKey != "" {
		prev, err := tx.Transfers().FindByKey(ctx, req.IdempotencyKey)
		switch {
		case err == nil:
			if !prev.SameTransfer(req.FromID, req.ToID, req.Amount) {
				return nil, false, e.reject(newError(KindInvalidOperation, opTransfer, req.FromID, errKeyReused))
			}
			return prev, false, nil
		case !errors.Is(err, ErrNoRecord):
			return nil, false, e.storageFailure(opTransfer, 0, err)
		}
	}

	from, to, err := e.loadPair(ctx, tx.Accounts(), req.FromID, req.ToID)
	if err != nil {
		return nil, false, err
	}
	if !req.Amount.IsPositive() {
		return nil, false, e.reject(newError(KindInvalidAmount, opTransfer, 0, errNonPositive))
	}
	if from.Balance.LessThan(req.Amount) {
		return nil, false, e.reject(newError(KindInsufficientFunds, opTransfer, from.ID, nil))
	}

	from.Balance = from.Balance.Sub(req.Amount)
	to.Balance = to.Balance.Add(req.Amount)
	for _, acc := range []*model.Account{from, to} {
		if err := tx.Accounts().Put(ctx, acc); err != nil {
			return nil, false, e.storageFailure(opTransfer, acc.ID, err)
		}
	}

	rec := &model.TransferRecord{
		FromAccountID:  req.FromID,
		ToAccountID:    req.ToID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
	}

	// Stamping, appending and committing under one mutex makes log order,
	// id order and timestamp order all equal commit order.
	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	rec.Timestamp = e.clock.next()
	if err := tx.Transfers().Append(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, false, e.reject(newError(KindInvalidOperation, opTransfer, req.FromID, errKeyReused))
		}
		return nil, false, e.storageFailure(opTransfer, 0, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, e.storageFailure(opTransfer, 0, err)
	}
	return rec, true, nil
}

// loadPair reads both accounts in ascending id order so that row locks are
// taken in the same order as account locks. A missing source is reported
// before a missing destination.
func (e *Engine) loadPair(ctx context.Context, accounts AccountStore, fromID, toID int64) (*model.Account, *model.Account, error) {
	ids := []int64{fromID, toID}
	if toID < fromID {
		ids[0], ids[1] = toID, fromID
	}
	found := make(map[int64]*model.Account, 2)
	for _, id := range ids {
		acc, err := accounts.Get(ctx, id)
		switch {
		case err == nil:
			found[id] = acc
		case errors.Is(err, ErrNoRecord):
		default:
			return nil, nil, e.storageFailure(opTransfer, id, err)
		}
	}
	for _, id := range []int64{fromID, toID} {
		if found[id] == nil {
			return nil, nil, e.reject(newError(KindAccountNotFound, opTransfer, id, nil))
		}
	}
	return found[fromID], found[toID], nil
}

// OpenAccount creates an account with a non-negative opening balance.
func (e *Engine) OpenAccount(ctx context.Context, owner string, initial decimal.Decimal) (model.AccountView, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return model.AccountView{}, e.reject(newError(KindInvalidOperation, opOpenAccount, 0, errEmptyOwner))
	}
	if initial.IsNegative() {
		return model.AccountView{}, e.reject(newError(KindInvalidAmount, opOpenAccount, 0, errNegativeAmount))
	}

	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return model.AccountView{}, e.storageFailure(opOpenAccount, 0, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	acc := &model.Account{Owner: owner, Balance: initial}
	if err := tx.Accounts().Insert(ctx, acc); err != nil {
		return model.AccountView{}, e.storageFailure(opOpenAccount, 0, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.AccountView{}, e.storageFailure(opOpenAccount, acc.ID, err)
	}
	e.log.WithFields(logrus.Fields{"account_id": acc.ID, "owner": owner, "balance": initial.String()}).Info("Account opened")
	return acc.View(), nil
}

func (e *Engine) publish(ctx context.Context, rec *model.TransferRecord) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, e.topic, events.NewTransferCompleted(rec)); err != nil {
		e.log.WithError(err).WithField("transfer_id", rec.ID).Warn("Failed to publish transfer event")
	}
}

func (e *Engine) reject(err *Error) error {
	e.log.WithFields(logrus.Fields{"op": err.Op, "kind": err.Kind.Name(), "account_id": err.AccountID}).Debug("Operation rejected")
	return err
}

func (e *Engine) storageFailure(op string, accountID int64, cause error) error {
	err := newError(KindStorageFailure, op, accountID, cause)
	e.log.WithError(cause).WithFields(logrus.Fields{"op": op, "account_id": accountID}).Error("Storage failure")
	return err
}

func transferFields(req TransferRequest) logrus.Fields {
	return logrus.Fields{
		"from":   req.FromID,
		"to":     req.ToID,
		"amount": req.Amount.String(),
	}
}
