package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClaims() Claims {
	return Claims{
		Sub:          "user-1",
		ProductionID: "prod-1",
		Role:         "casting",
		Iat:          time.Now().Unix(),
		Exp:          time.Now().Add(time.Hour).Unix(),
	}
}

func TestHS256RoundTrip(t *testing.T) {
	token, err := SignHS256(testClaims(), "test-secret")
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, "test-secret")
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256: %v", err)
	}
	if parsed.Sub != "user-1" || parsed.ProductionID != "prod-1" {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestHS256Expired(t *testing.T) {
	c := testClaims()
	c.Exp = time.Now().Add(-time.Minute).Unix()
	token, _ := SignHS256(c, "s")
	if _, err := ParseAndVerifyHS256(token, "s"); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestRS256ViaJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "kid-1",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	token, err := signRS256(testClaims(), key, "kid-1")
	if err != nil {
		t.Fatalf("signRS256: %v", err)
	}
	v := Verifier{JWKS: NewJWKSClient(srv.URL, time.Minute)}
	claims, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.ProductionID != "prod-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	other, _ := signRS256(testClaims(), key, "kid-2")
	if _, err := v.Verify(context.Background(), other); err == nil {
		t.Fatal("expected unknown kid to fail")
	}
}

func TestMiddleware(t *testing.T) {
	v := Verifier{Secret: "s"}
	var seen *Claims
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
	}))

	good, _ := SignHS256(testClaims(), "s")
	noProd := testClaims()
	noProd.ProductionID = ""
	bare, _ := SignHS256(noProd, "s")

	tests := []struct {
		name       string
		auth       string
		production string
		want       int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"garbage", "Bearer x.y.z", "", http.StatusUnauthorized},
		{"no production", "Bearer " + bare, "", http.StatusForbidden},
		{"mismatch", "Bearer " + good, "prod-2", http.StatusForbidden},
		{"ok", "Bearer " + good, "prod-1", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			if tc.production != "" {
				req.Header.Set(ProductionHeader, tc.production)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
	if seen == nil || seen.Sub != "user-1" {
		t.Fatalf("claims not stored in context: %+v", seen)
	}
}

func signRS256(claims Claims, key *rsa.PrivateKey, kid string) (string, error) {
	headerJSON, err := json.Marshal(Header{Alg: "RS256", Typ: "JWT", Kid: kid})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	unsigned := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payloadJSON)
	hash := sha256.Sum256([]byte(unsigned))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hash[:])
	if err != nil {
		return "", err
	}
	return unsigned + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}
