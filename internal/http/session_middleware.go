package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskhub/internal/domain"
	"taskhub/internal/service"
)

const authClaimsKey = "auth_claims"

// SessionAuthMiddleware valida el token de sesion emitido por Login y guarda los claims en el contexto.
// Los tokens de verificacion o de reseteo no sirven como sesion.
func SessionAuthMiddleware(signer *service.TokenSigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		if signer == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := signer.Verify(token)
		if err != nil || claims.Purpose != domain.PurposeLogin {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// GetAuthClaims obtiene los claims de sesion desde el contexto.
func GetAuthClaims(c *gin.Context) (service.TokenClaims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.TokenClaims{}, false
	}
	claims, ok := val.(service.TokenClaims)
	return claims, ok
}
