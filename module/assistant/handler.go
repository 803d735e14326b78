package assistant

import (
	"PPLink/middleware"
	midsec "PPLink/middleware/security"
	"PPLink/module/assistant/service"
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
	r.POST("/chat", h.Chat, middleware.RouteOpt{IsAuth: true})
}

func (h *Handler) Chat(c *gin.Context) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	var req service.ChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	resp, err := h.svc.Chat(c.Request.Context(), uid, req)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, resp)
}
