package message

import (
	"PPLink/middleware"
	midsec "PPLink/middleware/security"
	"PPLink/module/message/service"
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

// RegisterRoutes mounts per-connection routes on conns (/api/connections) and the
// unread summary on msgs (/api/messages).
func (h *Handler) RegisterRoutes(conns, msgs *middleware.Routes) {
	conns.GET("/:id/messages", h.List, middleware.RouteOpt{IsAuth: true})
	conns.POST("/:id/messages", h.Post, middleware.RouteOpt{IsAuth: true})
	conns.POST("/:id/read", h.Read, middleware.RouteOpt{IsAuth: true})
	msgs.GET("/unread", h.Unread, middleware.RouteOpt{IsAuth: true})
}

func (h *Handler) List(c *gin.Context) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	var req service.ListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	list, err := h.svc.List(c.Request.Context(), uid, c.Param("id"), req)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, list)
}

func (h *Handler) Post(c *gin.Context) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	var req service.PostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	m, err := h.svc.Post(c.Request.Context(), uid, c.Param("id"), req)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Created(c, m)
}

func (h *Handler) Read(c *gin.Context) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	var req service.ReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	res, err := h.svc.Read(c.Request.Context(), uid, c.Param("id"), req)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, res)
}

func (h *Handler) Unread(c *gin.Context) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	sum, err := h.svc.Unread(c.Request.Context(), uid)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, sum)
}
