// internal/server/response.go
//
// 本檔負責統一 HTTP 回應格式與錯誤對應。
//   - 成功回應一律經 writeJSON 輸出。
//   - 錯誤回應一律為 {"error": "..."}，狀態碼由 statusFor 依錯誤類別決定。
package server

import (
	"errors"
	"net/http"

	"finsystem/internal/bank"
	"finsystem/internal/storage"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	render.Status(r, code)
	render.JSON(w, r, v)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
}

// statusFor 將領域錯誤對應為 HTTP 狀態碼。
func statusFor(err error) int {
	switch {
	case errors.Is(err, bank.ErrInvalidAmount), errors.Is(err, bank.ErrInvalidAccountID),
		errors.Is(err, bank.ErrInvalidDisplayName):
		return http.StatusBadRequest
	case errors.Is(err, bank.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, bank.ErrDuplicateAccount), errors.Is(err, bank.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, storage.ErrPersistenceWrite):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeErr 輸出錯誤回應；5xx 錯誤另寫入 error 日誌，且不對外揭露內部細節。
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if code == http.StatusServiceUnavailable {
			msg = "state could not be persisted, no changes were applied"
		} else {
			msg = http.StatusText(code)
		}
	}
	writeJSON(w, r, code, errorResponse{Error: msg})
}
