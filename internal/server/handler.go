// internal/server/handler.go
//
// Package server
// ─────────────────────────────────────────────
// 提供 HTTP RESTful 介面，作為交易協調器的傳輸層 (Transport Layer)。
// 每個 handler 僅負責：
//  1. 解析並驗證 HTTP 請求
//  2. 呼叫 Ledger 服務（txn.Coordinator）執行操作
//  3. 將結果或錯誤轉為標準化 JSON 回應
//
// 持久化與 rollback 完全由協調器處理；handler 不直接接觸 Ledger 或 Store。
package server

import (
	"context"
	"net/http"

	"finsystem/internal/bank"
	"finsystem/internal/txn"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService 為傳輸層所需的 Ledger 操作。
type LedgerService interface {
	CreateAccount(ctx context.Context, id, name string, initial decimal.Decimal) (bank.Account, error)
	Transfer(ctx context.Context, sender, recipient string, amt decimal.Decimal) (txn.Receipt, error)
	GetAccount(ctx context.Context, id string) (bank.Account, error)
	ListAccounts(ctx context.Context) []bank.Account
}

// Server 為 HTTP 層核心結構。
type Server struct {
	svc    LedgerService
	logger *zap.Logger
}

// NewServer 建立新的 HTTP 伺服器；logger 為 nil 時不輸出日誌。
func NewServer(svc LedgerService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger}
}

type createAccountRequest struct {
	Username       string          `json:"username"`
	FullName       string          `json:"full_name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type transferRequest struct {
	Sender    string          `json:"sender"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
}

// createAccount 處理 POST /accounts → 201 + 新帳戶。
func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	a, err := s.svc.CreateAccount(r.Context(), req.Username, req.FullName, req.InitialBalance)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, a)
}

// listAccounts 處理 GET /accounts。
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.svc.ListAccounts(r.Context()))
}

// getAccount 處理 GET /accounts/{id}。
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

// transfer 處理 POST /transfer → 200 + 回執。
func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	rcpt, err := s.svc.Transfer(r.Context(), req.Sender, req.Recipient, req.Amount)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"message": "Transfer Successful",
		"receipt": rcpt,
	})
}

// home 處理 GET /。
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "Ecosystem Online & Persistent"})
}

// health 提供健康檢查端點：GET /health。
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
