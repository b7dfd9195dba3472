package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/valcrest-online/valcrest-backend/pkg/config"
)

// AccessClaims is the slice of the account system's token this service reads.
// Token issuance is owned by the account system; this service only verifies.
type AccessClaims struct {
	AccountID uuid.UUID
	SessionID string
	ExpiresAt time.Time
}

// SessionChecker reports whether a session id still has a live backing session.
type SessionChecker interface {
	HasAccessSession(ctx context.Context, accessID string) (bool, error)
}

type tokenClaims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

// ParseAccessToken verifies signature, issuer and expiry and extracts claims.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessClaims, error) {
	if raw == "" {
		return nil, errors.New("token is empty")
	}

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.AccessSecret), nil
	},
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is invalid")
	}

	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil, fmt.Errorf("parse account id: %w", err)
	}

	out := &AccessClaims{
		AccountID: accountID,
		SessionID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
