package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// AuthConfig verifies bearer tokens issued by the identity provider.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

const bearerPrefix = "Bearer "

type userKey struct{}

// UserID returns the authenticated user id stored by the auth middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// WithUserID returns a copy of ctx carrying id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// requireUser rejects requests without a valid HS256 bearer token and
// stores the token subject as the user id.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

		sub, err := s.verify(token)
		if err != nil {
			s.log.Debug("rejected bearer token", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sub)))
	})
}

func (s *Server) verify(token string) (string, error) {
	if token == "" {
		return "", eris.New("server: empty token")
	}
	if s.auth.Secret == "" {
		return "", eris.New("server: auth not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if s.auth.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.auth.Issuer))
	}
	if s.auth.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.auth.Audience))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(s.auth.Secret), nil
	}, opts...)
	if err != nil {
		return "", eris.Wrap(err, "server: parse token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", eris.New("server: token has no subject")
	}
	return claims.Subject, nil
}
