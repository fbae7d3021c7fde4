package response

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ecommerce-auth/pkg/apperror"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error    string                `json:"error"`
	Message  string                `json:"message"`
	Messages []apperror.FieldError `json:"messages,omitempty"`
}

// MessageBody is used by operations that only confirm success.
type MessageBody struct {
	Message string `json:"message"`
}

var (
	mu         sync.RWMutex
	logger     logrus.FieldLogger = logrus.StandardLogger()
	production bool
)

// Setup sets the logger used for internal failures and whether their causes are hidden.
func Setup(l logrus.FieldLogger, isProduction bool) {
	mu.Lock()
	defer mu.Unlock()
	if l != nil {
		logger = l
	}
	production = isProduction
}

func settings() (logrus.FieldLogger, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return logger, production
}

// JSON writes body with status.
func JSON(c *gin.Context, status int, body any) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, body)
}

// Message writes {"message": msg}.
func Message(c *gin.Context, status int, msg string) {
	JSON(c, status, MessageBody{Message: msg})
}

// Error renders err. Unclassified errors become 500s; their cause is logged and,
// in production, replaced by a generic message.
func Error(c *gin.Context, err error) {
	ae := apperror.As(err)
	body := ErrorBody{Error: ae.Label(), Message: ae.Message, Messages: ae.Details}

	if ae.Kind == apperror.KindInternal {
		l, prod := settings()
		l.WithError(ae.Cause).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.Request.URL.Path,
		}).Error(ae.Message)
		switch {
		case prod:
			body.Message = apperror.GenericMessage
		case ae.Cause != nil:
			body.Message = ae.Cause.Error()
		case body.Message == "":
			body.Message = apperror.GenericMessage
		}
	}
	c.JSON(ae.Status(), body)
}

// Abort renders err and stops the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// RouteNotFound is the NoRoute handler.
func RouteNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   "Not Found",
		"message": "Cannot " + c.Request.Method + " " + c.Request.URL.RequestURI(),
		"path":    c.Request.URL.RequestURI(),
	})
}
