package match

import (
	"strconv"

	"PPLink/middleware"
	midsec "PPLink/middleware/security"
	"PPLink/module/match/service"
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
	r.GET("/suggestions", h.Suggestions, middleware.RouteOpt{IsAuth: true})
}

func (h *Handler) Suggestions(c *gin.Context) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	var limit int64
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.ParseInt(v, 10, 64); err != nil {
			apiresp.Fail(c, errs.ErrArgs.WrapMsg("limit must be a number"))
			return
		}
	}
	res, err := h.svc.Suggest(c.Request.Context(), uid, limit)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, res)
}
