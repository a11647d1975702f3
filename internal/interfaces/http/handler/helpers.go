package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/coagronet/console/internal/domain/resource"
	"github.com/coagronet/console/internal/interfaces/http/dto"
	"github.com/coagronet/console/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

var errNotObject = errors.New("request body must be a JSON object")

// bindJSON binds the body into req and answers 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindQuery binds the query string into req and answers 400 on failure.
func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindID binds the :id path parameter.
func bindID(c *gin.Context) (int64, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return 0, false
	}
	return req.ID, true
}

// bindRecord decodes the body as an opaque record. Numbers are kept as
// json.Number so large ids survive the round trip to the API.
func bindRecord(c *gin.Context) (resource.Record, bool) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	var rec resource.Record
	err := dec.Decode(&rec)
	if err == nil && rec == nil {
		err = errNotObject
	}
	if err != nil {
		msg := "Invalid request body"
		if errors.Is(err, io.EOF) || errors.Is(err, errNotObject) {
			msg = errNotObject.Error()
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidJSON, msg))
		return nil, false
	}
	return rec, true
}
