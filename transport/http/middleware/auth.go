package middleware

import (
	"context"
	"net/http"
	"slices"

	"github.com/rs/zerolog/log"

	"carhive/infras/jwt"
	"carhive/infras/otel"
	"carhive/shared/constant"
	"carhive/shared/failure"
	"carhive/transport/http/response"
)

// Authentication verifies bearer tokens and puts the principal on the request
// context. Token issuance lives in the identity service; this side only
// verifies.
type Authentication struct {
	jwtService jwt.JWT
	otel       otel.Otel
}

func NewAuthentication(jwtService jwt.JWT, otel otel.Otel) *Authentication {
	return &Authentication{
		jwtService: jwtService,
		otel:       otel,
	}
}

func (a *Authentication) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, scope := a.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, "middleware.Authenticated")
		defer scope.End()

		token, err := jwt.ExtractTokenFromHeader(r.Header.Get(constant.RequestHeaderAuthorization))
		if err != nil {
			scope.TraceError(err)

			response.WithError(w, failure.Unauthorized(err.Error()))

			return
		}

		claims, err := a.jwtService.ValidateToken(token)
		if err != nil {
			scope.TraceError(err)
			log.Warn().Err(err).Msg("rejected request with invalid token")

			response.WithError(w, failure.Unauthorized(err.Error()))

			return
		}

		ctx = context.WithValue(ctx, constant.ContextKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, constant.ContextKeyUserRole, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route group to the given roles. It must run after
// Authenticated.
func (a *Authentication) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(constant.ContextKeyUserRole).(string)

			if !slices.Contains(roles, role) {
				response.WithError(w, failure.ForbiddenError)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
