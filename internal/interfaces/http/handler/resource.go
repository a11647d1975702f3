package handler

import (
	"github.com/coagronet/console/internal/application/console"
	"github.com/coagronet/console/internal/domain/resource"
	"github.com/gin-gonic/gin"
)

// ResourceHandler proxies CRUD on the inventory API's collections
type ResourceHandler struct {
	BaseHandler
	resources *console.ResourceService
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(resources *console.ResourceService) *ResourceHandler {
	return &ResourceHandler{resources: resources}
}

// List returns one page of a resource. A failed load still carries an
// empty page so tables render.
func (h *ResourceHandler) List(c *gin.Context) {
	var q console.ListQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.resources.List(reqCtx(c), sessionID(c), c.Param("resource"), q)
	if err != nil {
		h.HandleErrorWithData(c, err, resource.EmptyPage().Items)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.Size)
}

// Create adds a record
func (h *ResourceHandler) Create(c *gin.Context) {
	rec, ok := bindRecord(c)
	if !ok {
		return
	}
	res, err := h.resources.Create(reqCtx(c), sessionID(c), c.Param("resource"), rec)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res, res.Notification)
}

// Update replaces a record
func (h *ResourceHandler) Update(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	rec, ok := bindRecord(c)
	if !ok {
		return
	}
	res, err := h.resources.Update(reqCtx(c), sessionID(c), c.Param("resource"), id, rec)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res, res.Notification)
}

// Delete removes a record
func (h *ResourceHandler) Delete(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	res, err := h.resources.Delete(reqCtx(c), sessionID(c), c.Param("resource"), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res, res.Notification)
}
