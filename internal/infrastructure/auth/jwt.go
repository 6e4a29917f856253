package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
)

const (
	authorizationHeader = "authorization"
	bearerPrefix        = "Bearer "
)

// ErrNoIdentity is returned when the context carries no authenticated user.
var ErrNoIdentity = errors.New("no authenticated user in context")

// Claims is the token payload. It carries everything needed to rebuild the
// user a match is evaluated for.
type Claims struct {
	UserID          string   `json:"user_id"`
	Name            string   `json:"name,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty"`
	AllowedMarkings []string `json:"allowed_markings,omitempty"`
	Organizations   []string `json:"organizations,omitempty"`
	jwt.RegisteredClaims
}

// User converts the claims to a domain user.
func (c *Claims) User() *entity.User {
	return &entity.User{
		ID:              c.UserID,
		Name:            c.Name,
		Capabilities:    append([]string(nil), c.Capabilities...),
		AllowedMarkings: append([]string(nil), c.AllowedMarkings...),
		Organizations:   append([]string(nil), c.Organizations...),
	}
}

// JWTAuthenticator issues and validates HS256 tokens.
type JWTAuthenticator struct {
	secret      []byte
	issuer      string
	tokenExpiry time.Duration
	now         func() time.Time
}

// NewJWTAuthenticator creates a new JWTAuthenticator.
func NewJWTAuthenticator(secret, issuer string, tokenExpiry time.Duration) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret:      []byte(secret),
		issuer:      issuer,
		tokenExpiry: tokenExpiry,
		now:         time.Now,
	}
}

// GenerateToken signs a token for the user.
func (ja *JWTAuthenticator) GenerateToken(user *entity.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("user ID cannot be empty")
	}

	now := ja.now()
	claims := &Claims{
		UserID:          user.ID,
		Name:            user.Name,
		Capabilities:    user.Capabilities,
		AllowedMarkings: user.AllowedMarkings,
		Organizations:   user.Organizations,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    ja.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ja.tokenExpiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ja.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a token and checks its signature, expiry and issuer.
func (ja *JWTAuthenticator) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ja.now),
	}
	if ja.issuer != "" {
		options = append(options, jwt.WithIssuer(ja.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return ja.secret, nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token carries no user id")
	}
	return claims, nil
}

type contextKeyType string

const claimsContextKey contextKeyType = "jwt_claims"

// WithClaims returns a new context with claims attached.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ExtractClaims extracts JWT claims from the context.
func ExtractClaims(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, ErrNoIdentity
	}
	return claims, nil
}

// UserFromContext returns the authenticated user of the call.
func UserFromContext(ctx context.Context) (*entity.User, error) {
	claims, err := ExtractClaims(ctx)
	if err != nil {
		return nil, err
	}
	return claims.User(), nil
}

// authenticate reads the bearer token from the incoming metadata.
func (ja *JWTAuthenticator) authenticate(ctx context.Context) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}

	values := md.Get(authorizationHeader)
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing authorization token")
	}

	claims, err := ja.ValidateToken(strings.TrimPrefix(values[0], bearerPrefix))
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	return WithClaims(ctx, claims), nil
}

// UnaryInterceptor authenticates unary calls. Methods listed in skip (full
// method names) are let through anonymously.
func (ja *JWTAuthenticator) UnaryInterceptor(skip ...string) grpc.UnaryServerInterceptor {
	open := methodSet(skip)
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if open[info.FullMethod] {
			return handler(ctx, req)
		}
		authed, err := ja.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return handler(authed, req)
	}
}

// StreamInterceptor authenticates streaming calls.
func (ja *JWTAuthenticator) StreamInterceptor(skip ...string) grpc.StreamServerInterceptor {
	open := methodSet(skip)
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if open[info.FullMethod] {
			return handler(srv, ss)
		}
		authed, err := ja.authenticate(ss.Context())
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: authed})
	}
}

func methodSet(methods []string) map[string]bool {
	set := make(map[string]bool, len(methods))
	for _, m := range methods {
		set[m] = true
	}
	return set
}

// wrappedServerStream wraps a gRPC server stream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
