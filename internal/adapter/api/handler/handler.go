package handler

import (
	"github.com/labstack/echo/v4"

	"b2bmarket/internal/adapter/api/middleware"
	"b2bmarket/internal/domain/entity"
	"b2bmarket/pkg/errors"
)

// identity returns the caller set by the auth middleware.
func identity(c echo.Context) (entity.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return entity.Identity{}, errors.Unauthorized("Authentication required", nil)
	}
	return id, nil
}

// bindAndValidate decodes the body into req and runs struct validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.BadRequest("Malformed request body", err)
	}
	return c.Validate(req)
}
