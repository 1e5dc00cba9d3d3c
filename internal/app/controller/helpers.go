package controller

import (
	"errors"
	"strconv"

	"github.com/bookbee/bookbee-backend/internal/app/service"
	apperrors "github.com/bookbee/bookbee-backend/internal/errors"
	"github.com/bookbee/bookbee-backend/internal/middleware"
	"github.com/bookbee/bookbee-backend/pkg/util"
	"github.com/gin-gonic/gin"
)

// parseIDParam reads a positive numeric path parameter, replying 400 when it is malformed.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// requireUser replies 401 when the request carries no authenticated user.
func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return userID, true
}

// respondValidation handles service validation failures and reports whether it replied.
func respondValidation(c *gin.Context, err error) bool {
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	apperrors.RespondWithValidationError(c, map[string]string{verr.Field: verr.Message})
	return true
}

func pageFromQuery(c *gin.Context) util.Page {
	return util.Paginate(c.Query("page"), c.Query("limit"))
}
