package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/lingkungan/internal"
	"github.com/frahmantamala/lingkungan/internal/transport"
	"github.com/frahmantamala/lingkungan/pkg/logger"
)

// RBACAuthorization authenticates bearer tokens and gates routes on the
// permissions they carry.
type RBACAuthorization struct {
	*transport.BaseHandler
	tokens  *TokenManager
	checker PermissionChecker
}

func NewRBACAuthorization(tokens *TokenManager, checker PermissionChecker, lg *slog.Logger) *RBACAuthorization {
	if checker == nil {
		checker = NewPermissionChecker()
	}
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(lg),
		tokens:      tokens,
		checker:     checker,
	}
}

// Authenticate puts the token's principal on the request context.
func (ra *RBACAuthorization) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := transport.ExtractTokenFromHeader(r)
		if token == "" {
			ra.Logger.Warn("auth middleware: missing authorization token", "path", r.URL.Path)
			ra.WriteError(w, http.StatusUnauthorized, internal.ErrInvalidToken.Message)
			return
		}

		claims, err := ra.tokens.Validate(token)
		if err != nil {
			ra.Logger.Warn("auth middleware: token validation failed", "error", err)
			message := internal.ErrInvalidToken.Message
			if appErr, ok := internal.IsAppError(err); ok {
				message = appErr.Message
			}
			ra.WriteError(w, http.StatusUnauthorized, message)
			return
		}

		user := claims.User()
		ctx := internal.ContextWithUser(r.Context(), user)
		ctx = logger.With(ctx, "user_id", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (ra *RBACAuthorization) require(name string, allowed func([]string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := internal.UserFromContext(r.Context())
			if !ok || user == nil {
				ra.WriteError(w, http.StatusUnauthorized, internal.ErrInvalidToken.Message)
				return
			}

			if !allowed(user.Permissions) {
				logger.From(r.Context(), ra.Logger).Warn("access denied: insufficient permissions",
					"user_id", user.ID,
					"required", name,
					"user_permissions", user.Permissions)
				ra.WriteError(w, http.StatusForbidden, internal.ErrForbidden.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireApprove() func(http.Handler) http.Handler {
	return ra.require("approve", ra.checker.CanApprove)
}

func (ra *RBACAuthorization) RequireReject() func(http.Handler) http.Handler {
	return ra.require("reject", ra.checker.CanReject)
}

func (ra *RBACAuthorization) RequireReset() func(http.Handler) http.Handler {
	return ra.require("reset", ra.checker.CanReset)
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.require("admin", ra.checker.IsAdmin)
}
