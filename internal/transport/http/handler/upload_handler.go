package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recipebox/internal/service"
	"recipebox/internal/transport/http/ez"
)

type UploadHandler struct {
	svc   *service.UploadService
	write gin.HandlerFunc
}

func NewUploadHandler(svc *service.UploadService, write gin.HandlerFunc) *UploadHandler {
	return &UploadHandler{svc: svc, write: write}
}

func (h *UploadHandler) Priority() int { return 40 }

type presignIn struct {
	ContentType string `json:"contentType" binding:"required"`
}

func (h *UploadHandler) MountAPI(r ez.Routes) {
	authed := ez.New(r.Authed, r.Log)

	ez.Register(authed, ez.Action[presignIn, *service.UploadTicket]{
		Method: http.MethodPost,
		Path:   "/uploads/image",
		Binder: ez.BindJSON,
		Auth:   true,
		Use:    chain(h.write),
		Handler: func(c *gin.Context, in *presignIn) (*service.UploadTicket, error) {
			return h.svc.PresignImage(c.Request.Context(), ez.UserID(c), in.ContentType)
		},
	})
}
