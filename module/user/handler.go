package user

import (
	"PPLink/middleware"
	midsec "PPLink/middleware/security"
	usermodel "PPLink/module/user/model"
	"PPLink/module/user/service"
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

// RegisterRoutes mounts /auth and /users under the given group.
func (h *Handler) RegisterRoutes(auth, users *middleware.Routes) {
	auth.POST("/register", h.Register, middleware.RouteOpt{})
	auth.POST("/login", h.Login, middleware.RouteOpt{})
	users.GET("/me", h.Me, middleware.RouteOpt{IsAuth: true})
	users.PUT("/me", h.UpdateMe, middleware.RouteOpt{IsAuth: true})
	users.GET("/:id", h.Profile, middleware.RouteOpt{IsAuth: true})
}

func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Created(c, res)
}

func (h *Handler) Login(c *gin.Context) {
	var req service.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, res)
}

func (h *Handler) Me(c *gin.Context) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	u, err := h.svc.Me(c.Request.Context(), uid)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, u)
}

func (h *Handler) UpdateMe(c *gin.Context) {
	uid, err := midsec.MustUserID(c)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	var p usermodel.ProfileUpdate
	if err := c.ShouldBindJSON(&p); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), uid, p)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, u)
}

func (h *Handler) Profile(c *gin.Context) {
	view, err := h.svc.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Success(c, view)
}
