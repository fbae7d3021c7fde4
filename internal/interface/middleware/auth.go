package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ecommerce-auth/pkg/apperror"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
	"github.com/oksasatya/go-ecommerce-auth/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxUserEmailKey = "userEmail"
	CtxUserRoleKey  = "userRole"

	MsgTokenMissing = "Token de autenticación no proporcionado"
	MsgTokenInvalid = "Token inválido o expirado"
	MsgNotAuthed    = "Usuario no autenticado"
	MsgNotPermitted = "No tienes permisos para acceder a este recurso"
	bearerPrefix    = "Bearer "
)

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(bearerPrefix):])
	return tok, tok != ""
}

func setClaims(c *gin.Context, claims *helpers.AccessClaims) {
	c.Set(CtxUserIDKey, claims.UserID)
	c.Set(CtxUserEmailKey, claims.Email)
	c.Set(CtxUserRoleKey, claims.Role)
}

// Authenticate requires a valid "Authorization: Bearer <access token>" header and
// stores the caller's id, email and role in the Gin context.
func Authenticate(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c)
		if !ok {
			response.Abort(c, apperror.Unauthorized(MsgTokenMissing))
			return
		}
		claims, err := jwt.ParseAccessToken(tok)
		if err != nil {
			response.Abort(c, apperror.Unauthorized(MsgTokenInvalid))
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// Authorize admits only callers whose role is in roles. It must run after Authenticate.
func Authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserIDKey) == "" {
			response.Abort(c, apperror.Unauthorized(MsgNotAuthed))
			return
		}
		role := c.GetString(CtxUserRoleKey)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Abort(c, apperror.Forbidden(MsgNotPermitted))
	}
}

// OptionalAuth attaches the caller when a valid bearer token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok, ok := bearerToken(c); ok {
			if claims, err := jwt.ParseAccessToken(tok); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller's id, or "".
func CurrentUserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}
