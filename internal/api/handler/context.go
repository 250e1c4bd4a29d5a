package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ContextUserID is the echo.Context key the Auth middleware stores the
// authenticated user id under.
const ContextUserID = "user_id"

// ctxUserID returns the id injected by the Auth middleware. Its absence
// means the route was registered without the middleware.
func ctxUserID(c echo.Context) (int64, error) {
	id, _ := c.Get(ContextUserID).(int64)
	if id <= 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return id, nil
}

func pathTaskID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid task id")
	}
	return id, nil
}
