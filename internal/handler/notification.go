package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/procurahq/license-api/internal/handler/middleware"
	"github.com/procurahq/license-api/internal/ierr"
	"github.com/procurahq/license-api/internal/service"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	emitter *service.NotificationEmitter
	logger  *zap.Logger
}

func NewNotificationHandler(emitter *service.NotificationEmitter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		emitter: emitter,
		logger:  logger.Named("NotificationHandler"),
	}
}

func (h *NotificationHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		_ = c.Error(fmt.Errorf("%w: authentication required", ierr.ErrUnauthorized))
		return
	}

	notifications, err := h.emitter.ListForCaller(c.Request.Context(), claims)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": true, "notifications": notifications})
}
