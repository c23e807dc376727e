package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/herdvest/backoffice/internal/repository/postgresql"
	"github.com/herdvest/backoffice/internal/workflow"
)

type contextKey string

const identityCtxKey contextKey = "identity"

func identityFrom(ctx context.Context) (workflow.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(workflow.Identity)
	return id, ok
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Mobile   string `json:"mobile"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	admin, err := s.admins.ValidateCredentials(r.Context(), loginRequest.Mobile, loginRequest.Password)
	if err != nil {
		if errors.Is(err, postgresql.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "Invalid mobile or password")
			return
		}
		respondError(w, http.StatusInternalServerError, "Error: login failed")
		return
	}

	claims := jwt.MapClaims{
		"mobile": admin.Mobile,
		"name":   admin.Name,
		"roles":  admin.Roles,
		"exp":    time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error: failed to sign token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": signed})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, http.StatusUnauthorized, "invalid token format")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid claims")
			return
		}

		identity, err := identityFromClaims(claims)
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), identityCtxKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromClaims(claims jwt.MapClaims) (workflow.Identity, error) {
	mobile, ok := claims["mobile"].(string)
	if !ok || mobile == "" {
		return workflow.Identity{}, errors.New("mobile not found in token")
	}
	name, _ := claims["name"].(string)

	var roleNames []string
	if raw, ok := claims["roles"].([]interface{}); ok {
		for _, r := range raw {
			if name, ok := r.(string); ok {
				roleNames = append(roleNames, name)
			}
		}
	}
	roles := workflow.ParseRoles(roleNames)
	if roles == 0 {
		return workflow.Identity{}, errors.New("no recognized role in token")
	}

	return workflow.Identity{Mobile: mobile, Name: name, Roles: roles}, nil
}
