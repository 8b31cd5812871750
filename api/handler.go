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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tomoncle/ledger/engine"
	"github.com/tomoncle/ledger/model"
	"github.com/tomoncle/ledger/types"
)

const idempotencyHeader = "Idempotency-Key"

type TransferRequest struct {
	FromAccount int64            `json:"from_account"`
	ToAccount   int64            `json:"to_account"`
	Amount      decimal.Decimal  `json:"amount"`
	Metadata    types.JsonObject `json:"metadata,omitempty"`
}

type OpenAccountRequest struct {
	Owner   string          `json:"owner"`
	Balance decimal.Decimal `json:"balance"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"healthy": true})
		return
	}
	status := h.health(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid account id"})
		return
	}
	account, err := h.svc.GetAccount(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) HandleOpenAccount(w http.ResponseWriter, r *http.Request) {
	var req OpenAccountRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	account, err := h.svc.OpenAccount(r.Context(), req.Owner, req.Balance)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	rec, err := h.svc.Submit(r.Context(), engine.TransferRequest{
		FromID:         req.FromAccount,
		ToID:           req.ToAccount,
		Amount:         req.Amount,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyHeader)),
		Metadata:       req.Metadata,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) HandleListTransfers(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "since must be an RFC 3339 time"})
			return
		}
		since = t
	}

	records := make([]*model.TransferRecord, 0)
	for rec, err := range h.svc.ListTransfersSince(r.Context(), since) {
		if err != nil {
			h.writeError(w, err)
			return
		}
		records = append(records, rec)
	}
	writeJSON(w, http.StatusOK, records)
}

// statusOf maps an engine error to its HTTP status.
func statusOf(err error) int {
	switch engine.KindOf(err) {
	case engine.KindAccountNotFound:
		return http.StatusNotFound
	case engine.KindInvalidAmount, engine.KindInvalidOperation:
		return http.StatusBadRequest
	case engine.KindInsufficientFunds:
		return http.StatusConflict
	case engine.KindStorageFailure:
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("status", code).Error("Request failed")
	}
	resp := ErrorResponse{Error: err.Error()}
	if kind := engine.KindOf(err); kind != 0 {
		resp.Kind = kind.Name()
	}
	writeJSON(w, code, resp)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
