package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/batchprint/internal/database"
)

// CurrentStorageContextKey is the key to retrieve the tenant storage client
// from echo.Context.
const CurrentStorageContextKey = "current_storage"

// TenantHeader carries the tenant namespace of the request.
const TenantHeader = "X-Okapi-Tenant"

// Tenant resolves the tenant header into a storage client and stores it into
// echo.Context. Every operation downstream is scoped to that one namespace.
func Tenant(registry database.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenant := c.Request().Header.Get(TenantHeader)
			if tenant == "" {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"error": echo.Map{
						"message": "missing tenant header",
					},
				})
			}

			client, err := registry.Client(tenant)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"error": echo.Map{
						"message": "invalid tenant",
					},
				})
			}

			c.Set(CurrentStorageContextKey, client)
			return next(c)
		}
	}
}
