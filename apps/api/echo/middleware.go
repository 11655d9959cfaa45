package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/textmine/backend/core/user"
)

// roleMiddleware rejects users whose role does not allow `role` before any handler runs.
func roleMiddleware(role user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if err = usr.Require(role); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
