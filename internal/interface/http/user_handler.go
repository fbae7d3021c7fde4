package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ecommerce-auth/internal/application"
	"github.com/oksasatya/go-ecommerce-auth/internal/interface/middleware"
	"github.com/oksasatya/go-ecommerce-auth/pkg/apperror"
	"github.com/oksasatya/go-ecommerce-auth/pkg/response"
	"github.com/oksasatya/go-ecommerce-auth/pkg/validation"
)

const (
	MsgAvatarMissing  = "Archivo de avatar no proporcionado"
	MsgAvatarTooLarge = "El avatar no puede superar 5MB"
	MsgAvatarType     = "El avatar debe ser una imagen"
	maxAvatarBytes    = 5 << 20
)

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type updateProfileRequest struct {
	Name   *string `json:"name" binding:"omitnil,personname"`
	Avatar *string `json:"avatar" binding:"omitempty,max=2048"`
}

type addressRequest struct {
	Street    string `json:"street" binding:"required,max=200"`
	City      string `json:"city" binding:"required,max=100"`
	State     string `json:"state" binding:"required,max=100"`
	ZipCode   string `json:"zipCode" binding:"required,max=20"`
	Country   string `json:"country" binding:"omitempty,max=100"`
	IsDefault bool   `json:"isDefault"`
}

func (r addressRequest) toInput() application.AddressInput {
	return application.AddressInput{
		Street: r.Street, City: r.City, State: r.State,
		ZipCode: r.ZipCode, Country: r.Country, IsDefault: r.IsDefault,
	}
}

type searchQuery struct {
	Q    string `form:"q" binding:"required,min=1,max=100"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

func requireUser(c *gin.Context) (string, bool) {
	uid := middleware.CurrentUserID(c)
	if uid == "" {
		response.Error(c, apperror.Unauthorized(middleware.MsgNotAuthed))
		return "", false
	}
	return uid, true
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := validation.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.Svc.UpdateProfile(c.Request.Context(), uid, application.UpdateProfileInput{Name: req.Name, Avatar: req.Avatar})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": application.MsgProfileUpdated, "user": p})
}

// UploadAvatar accepts a multipart "avatar" image of at most 5MB.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, apperror.BadRequest(MsgAvatarMissing))
		return
	}
	if fh.Size > maxAvatarBytes {
		response.Error(c, apperror.BadRequest(MsgAvatarTooLarge))
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error(c, apperror.BadRequest(MsgAvatarType))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, apperror.BadRequest(MsgAvatarMissing))
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UploadAvatar(c.Request.Context(), uid, f, fh.Filename, contentType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": application.MsgAvatarUpdated, "avatar": url})
}

func (h *UserHandler) AddAddress(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	var req addressRequest
	if err := validation.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.Svc.AddAddress(c.Request.Context(), uid, req.toInput())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"message": application.MsgAddressAdded, "addresses": list})
}

func (h *UserHandler) UpdateAddress(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	var req addressRequest
	if err := validation.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.Svc.UpdateAddress(c.Request.Context(), uid, c.Param("addressId"), req.toInput())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": application.MsgAddressUpdated, "addresses": list})
}

func (h *UserHandler) RemoveAddress(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	list, err := h.Svc.RemoveAddress(c.Request.Context(), uid, c.Param("addressId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": application.MsgAddressRemoved, "addresses": list})
}

// Search queries the users index. Admin only.
func (h *UserHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := validation.BindQuery(c, &q); err != nil {
		response.Error(c, err)
		return
	}
	users, err := h.Svc.SearchUsers(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"users": users})
}
