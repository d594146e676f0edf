package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"saldo/internal/core"
	"saldo/internal/wire"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds wire.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := s.auth.Register(r.Context(), creds.Name, creds.Email, creds.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.TokenResponse{Token: tok.Value, ExpiresAt: tok.ExpiresAt})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds wire.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := s.auth.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.TokenResponse{Token: tok.Value, ExpiresAt: tok.ExpiresAt})
}

// handleListPeriod serves GET /gastos/{year}/{month}. An empty period is an
// empty array, never null.
func (s *Server) handleListPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := s.ledger.List(r.Context(), UserID(r.Context()), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]wire.Record, 0, len(records))
	for _, e := range records {
		out = append(out, wire.FromExpense(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeRecord(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.ledger.Create(r.Context(), UserID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.FromExpense(e))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeRecord(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.ledger.Update(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.FromExpense(e))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.DeleteResponse{Deleted: true})
}

func (s *Server) handleGetSalary(w http.ResponseWriter, r *http.Request) {
	amount, err := s.ledger.Salary(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SalaryRequest{Value: amount.Float64()})
}

func (s *Server) handleSetSalary(w http.ResponseWriter, r *http.Request) {
	var req wire.SalaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Value < 0 {
		writeError(w, r, core.ErrInvalidAmount)
		return
	}
	amount, err := s.ledger.SetSalary(r.Context(), UserID(r.Context()), core.MoneyFromFloat(req.Value))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.SalaryRequest{Value: amount.Float64()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	totals, err := s.ledger.History(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]wire.HistoryEntry, 0, len(totals))
	for _, a := range totals {
		out = append(out, wire.FromAggregate(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeRecord reads a record body. Unknown category labels are stored as
// uncategorized.
func (s *Server) decodeRecord(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, error) {
	var rec wire.Record
	if err := decodeJSON(w, r, &rec); err != nil {
		return core.ExpenseInput{}, err
	}
	rec.Description = strings.TrimSpace(rec.Description)
	return rec.Input(s.categories)
}
