package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

func (s *Server) auditLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := AuditLogEntry{
			Timestamp: time.Now(),
			Method:    r.Method,
			Path:      r.URL.Path,
			Handler:   getHandlerName(r.URL.Path, r.Method),
		}

		if identity, ok := identityFrom(r.Context()); ok {
			entry.ActorMobile = identity.Mobile
		}

		if strings.HasPrefix(r.URL.Path, "/orders/") {
			parts := strings.Split(r.URL.Path, "/")
			if len(parts) > 2 {
				entry.OrderID = parts[2]
			}
		}

		if r.Body != nil && r.Method == http.MethodPost {
			requestBody, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			entry.Request = string(requestBody)

			if entry.OrderID == "" {
				var decision struct {
					OrderID string `json:"orderId"`
				}
				if err := json.Unmarshal(requestBody, &decision); err == nil {
					entry.OrderID = decision.OrderID
				}
			}
		}

		arw := newAuditResponseWriter(w)

		next.ServeHTTP(arw, r)

		entry.StatusCode = arw.status
		entry.Response = arw.body.String()

		s.AuditManager.LogEntry(r.Context(), entry)
	})
}

func getHandlerName(path string, method string) string {
	switch {
	case strings.HasPrefix(path, "/pending-units"):
		return "handleListOrders"
	case strings.HasPrefix(path, "/approve-unit"):
		return "handleApprove"
	case strings.HasPrefix(path, "/reject-unit"):
		return "handleReject"
	case strings.HasPrefix(path, "/farms"):
		return "handleListFarms"
	case strings.HasPrefix(path, "/user/"):
		return "handleGetInvestor"
	case strings.HasPrefix(path, "/orders/") && strings.HasSuffix(path, "/history"):
		return "handleOrderHistory"
	case strings.HasPrefix(path, "/orders/") && method == http.MethodGet:
		return "handleGetOrder"
	}
	return "unknown"
}
