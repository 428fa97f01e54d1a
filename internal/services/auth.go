package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/routineflow-backend/internal/platform/apierr"
	"github.com/yungbote/routineflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

// AuthService verifies access tokens minted by the identity provider. It never issues tokens.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type JWTClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type authService struct {
	log      *logger.Logger
	secret   []byte
	issuer   string
	audience string
}

func NewAuthService(log *logger.Logger, jwtSecretKey, issuer, audience string) AuthService {
	return &authService{
		log:      log.With("service", "AuthService"),
		secret:   []byte(jwtSecretKey),
		issuer:   strings.TrimSpace(issuer),
		audience: strings.TrimSpace(audience),
	}
}

func unauthorized(err error) error {
	return apierr.New(http.StatusUnauthorized, CodeUnauthorized, err)
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, unauthorized(fmt.Errorf("missing bearer token"))
	}
	if len(as.secret) == 0 {
		as.log.Error("JWT secret not configured", "step", "auth")
		return ctx, unauthorized(fmt.Errorf("token verification unavailable"))
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if as.issuer != "" {
		opts = append(opts, jwt.WithIssuer(as.issuer))
	}
	if as.audience != "" {
		opts = append(opts, jwt.WithAudience(as.audience))
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.secret, nil
	}, opts...)
	if err != nil {
		return ctx, unauthorized(fmt.Errorf("failed to parse token: %w", err))
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, unauthorized(fmt.Errorf("invalid or expired token"))
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return ctx, unauthorized(fmt.Errorf("invalid user id in token"))
	}
	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Email:       strings.ToLower(strings.TrimSpace(claims.Email)),
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}
