package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims JWTClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func claimsFor(sub string, exp time.Time) JWTClaims {
	return JWTClaims{
		Email: " User@Example.com ",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "https://auth.example.com",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestSetContextFromToken(t *testing.T) {
	as := NewAuthService(testLogger(t), testSecret, "https://auth.example.com", "authenticated")
	userID := uuid.New()
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(userID.String(), time.Now().Add(time.Hour)))

	ctx, err := as.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != userID || rd.Email != "user@example.com" || rd.TokenString != token {
		t.Fatalf("request data: %+v", rd)
	}
}

func TestSetContextFromTokenRejects(t *testing.T) {
	as := NewAuthService(testLogger(t), testSecret, "https://auth.example.com", "authenticated")
	future := time.Now().Add(time.Hour)
	valid := claimsFor(uuid.NewString(), future)

	wrongIssuer := valid
	wrongIssuer.Issuer = "https://evil.example.com"
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"expired":        signToken(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(uuid.NewString(), time.Now().Add(-time.Minute))),
		"wrong secret":   signToken(t, jwt.SigningMethodHS256, []byte("other"), valid),
		"wrong alg":      signToken(t, jwt.SigningMethodHS512, []byte(testSecret), valid),
		"subject":        signToken(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("user-1", future)),
		"issuer":         signToken(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer),
		"missing expiry": signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			ctx, err := as.SetContextFromToken(context.Background(), token)
			if apierr.StatusOf(err) != http.StatusUnauthorized {
				t.Fatalf("want 401 got=%v", err)
			}
			if ctxutil.GetRequestData(ctx) != nil {
				t.Fatalf("request data should not be set")
			}
		})
	}
}

func TestSetContextWithoutSecret(t *testing.T) {
	as := NewAuthService(testLogger(t), "", "", "")
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(uuid.NewString(), time.Now().Add(time.Hour)))
	if _, err := as.SetContextFromToken(context.Background(), token); apierr.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("want 401 got=%v", err)
	}
}
