package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/klingon-exchange/ledger-indexer/internal/ledger"
)

type messageResponse struct {
	Message string `json:"message"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

type errorResponse struct {
	Error string          `json:"error"`
	Code  ledger.ErrorCode `json:"code"`
}

func (s *Server) handleSubmitBlock(w http.ResponseWriter, r *http.Request) {
	var req ledger.BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, ledger.ErrValidation("invalid JSON body: %v", err))
		return
	}

	if err := s.engine.SubmitBlock(r.Context(), &req); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Block processed successfully"})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if address == "" {
		s.writeError(w, ledger.ErrValidation("address path segment must not be empty"))
		return
	}

	balance, err := s.engine.GetBalance(r.Context(), address)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("height")
	if raw == "" {
		s.writeError(w, ledger.ErrValidation("height query parameter is required"))
		return
	}

	height, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeError(w, ledger.ErrValidation("height must be an integer, got %q", raw))
		return
	}
	if height < 0 {
		s.writeError(w, ledger.ErrValidation("height must be non-negative, got %d", height))
		return
	}

	if err := s.engine.Rollback(r.Context(), height); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Rollback to height %d completed successfully", height),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("failed to encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	ledgerErr, ok := err.(*ledger.Error)
	if !ok {
		ledgerErr = &ledger.Error{Code: ledger.CodeInternalServerError, Message: err.Error()}
	}
	s.writeJSON(w, ledgerErr.HTTPStatus(), errorResponse{Error: ledgerErr.Message, Code: ledgerErr.Code})
}
