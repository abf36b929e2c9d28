package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

// RequireAdmin ensures the caller is an administrator.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(http.StatusText(http.StatusUnauthorized))
		}
		if !principal.User.IsAdmin {
			return apperrors.NewForbidden("administrator access required")
		}
		return c.Next()
	}
}

// RequirePasswordCurrent blocks accounts that must set a new password first.
// The change-password route is mounted outside this guard.
func RequirePasswordCurrent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(http.StatusText(http.StatusUnauthorized))
		}
		if principal.User.MustResetPassword {
			return apperrors.NewDomainError(apperrors.CodePasswordReset,
				"a new password must be set before continuing", http.StatusForbidden, nil)
		}
		return c.Next()
	}
}
