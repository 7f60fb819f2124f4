package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ProductionHeader lets a caller narrow a multi-production token; it must match the claim.
const ProductionHeader = "X-Production-Id"

type ctxKey int

const ctxKeyClaims ctxKey = iota

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(*Claims)
	return c, ok
}

// Verifier checks bearer tokens: RS256 through JWKS when configured and the token names
// a key id, HS256 with the shared secret otherwise.
type Verifier struct {
	Secret string
	JWKS   *JWKSClient
}

func (v Verifier) Enabled() bool { return v.Secret != "" || v.JWKS != nil }

func (v Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	if v.JWKS != nil {
		header, err := ParseHeader(raw)
		if err != nil {
			return nil, err
		}
		if header.Alg == "RS256" && header.Kid != "" {
			pub, err := v.JWKS.Get(ctx, header.Kid)
			if err != nil {
				return nil, errors.Join(ErrInvalidToken, err)
			}
			return VerifyRS256(raw, pub)
		}
	}
	if v.Secret == "" {
		return nil, ErrInvalidToken
	}
	return ParseAndVerifyHS256(raw, v.Secret)
}

// Middleware rejects requests without a valid bearer token carrying a production id.
func (v Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}
		claims, err := v.Verify(r.Context(), raw)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.ProductionID == "" {
			http.Error(w, "token has no production", http.StatusForbidden)
			return
		}
		if p := r.Header.Get(ProductionHeader); p != "" && p != claims.ProductionID {
			http.Error(w, "production mismatch", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyClaims, claims)))
	})
}
