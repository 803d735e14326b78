package connection

import (
	"context"

	"PPLink/middleware"
	midsec "PPLink/middleware/security"
	connmodel "PPLink/module/connection/model"
	"PPLink/module/connection/service"
	"PPLink/tools/apiresp"
	"PPLink/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *middleware.Routes) {
	r.POST("", h.Create, middleware.RouteOpt{IsAuth: true})
	r.GET("", h.List, middleware.RouteOpt{IsAuth: true})
	r.GET("/:id", h.Get, middleware.RouteOpt{IsAuth: true})
	r.PUT("/:id/accept", h.Accept, middleware.RouteOpt{IsAuth: true})
	r.PUT("/:id/reject", h.Reject, middleware.RouteOpt{IsAuth: true})
}

func (h *Handler) Create(c *gin.Context) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	var req service.CreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	conn, err := h.svc.Create(c.Request.Context(), uid, req)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Created(c, conn)
}

func (h *Handler) List(c *gin.Context) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	list, err := h.svc.List(c.Request.Context(), uid, connmodel.Status(c.Query("status")))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, list)
}

func (h *Handler) Get(c *gin.Context) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	conn, err := h.svc.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, conn)
}

func (h *Handler) Accept(c *gin.Context) {
	h.respond(c, h.svc.Accept)
}

func (h *Handler) Reject(c *gin.Context) {
	h.respond(c, h.svc.Reject)
}

func (h *Handler) respond(c *gin.Context, fn func(ctx context.Context, userID, connectionID string) (*connmodel.Connection, error)) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	conn, err := fn(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, conn)
}
