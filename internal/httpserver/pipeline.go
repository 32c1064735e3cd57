package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"pulsewatch/backend/internal/apperror"
	domain "pulsewatch/backend/internal/domain/auth"
	"pulsewatch/backend/internal/validation"
)

const maxBodyBytes = 1 << 20

// Auth failure messages.
const (
	msgUnauthorized = "Unauthorized"
	msgInvalidToken = "Invalid or expired token"
)

// handlerFunc is a route stage. A returned error stops the pipeline and is
// rendered by writeFailure.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// interceptor runs before the next stage and may reject the request.
type interceptor func(next handlerFunc) handlerFunc

type ctxKeyClaims struct{}

type ctxKeyEnvelope struct{}

// route builds an http.Handler that runs stages in order and then h.
func (s *Server) route(h handlerFunc, stages ...interceptor) http.Handler {
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i](h)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeFailure(w, r, s.logger, err)
		}
	})
}

// validate parses the request into an Envelope[B, Q, P] and stores it on the
// context. params names the path wildcards to collect.
func validate[B, Q, P any](v *validation.Validator, params ...string) interceptor {
	return func(next handlerFunc) handlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			raw := validation.Raw{Query: r.URL.Query()}
			if r.Body != nil && r.Body != http.NoBody {
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
				if err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						return apperror.Validation("Validation error: body: is too large")
					}
					return apperror.Wrap(apperror.KindValidation, "Validation error: body: could not be read", err)
				}
				raw.Body = body
			}
			if len(params) > 0 {
				raw.Params = make(map[string]string, len(params))
				for _, name := range params {
					raw.Params[name] = r.PathValue(name)
				}
			}

			env, err := validation.Parse[B, Q, P](v, raw)
			if err != nil {
				return err
			}
			ctx := context.WithValue(r.Context(), ctxKeyEnvelope{}, env)
			return next(w, r.WithContext(ctx))
		}
	}
}

// envelope returns the input stored by validate. It panics when the route
// has no matching validate stage.
func envelope[B, Q, P any](r *http.Request) *validation.Envelope[B, Q, P] {
	return r.Context().Value(ctxKeyEnvelope{}).(*validation.Envelope[B, Q, P])
}

// requireAuth verifies the bearer token and stores its claims on the context.
func (s *Server) requireAuth(next handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			return apperror.Unauthorized(msgUnauthorized)
		}
		claims, err := s.authService.VerifyToken(token)
		if err != nil {
			return apperror.Wrap(apperror.KindUnauthorized, msgInvalidToken, err)
		}
		ctx := context.WithValue(r.Context(), ctxKeyClaims{}, claims)
		return next(w, r.WithContext(ctx))
	}
}

func claimsFromContext(ctx context.Context) (*domain.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims{}).(*domain.Claims)
	return claims, ok && claims != nil
}

// bearerToken requires the exact "Bearer " prefix. An empty token after the
// prefix is left to verification.
func bearerToken(header string) (string, bool) {
	return strings.CutPrefix(header, "Bearer ")
}
