package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shop_back_end/internal/apperrors"
	"shop_back_end/internal/middleware"
)

// MsgBadRequest : corps JSON illisible ou mal typé.
const MsgBadRequest = "請求格式錯誤"

// respondError traduit une erreur de service en réponse HTTP.
// Les erreurs système sont journalisées avec leur cause; le client ne voit que le message générique.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)

	if kind == apperrors.KindSystem {
		log.Error("❌ erreur système",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(middleware.ContextRequestID)),
			slog.Any("error", err))
	}

	middleware.AbortWithError(c, status, apperrors.PublicMessage(err))
}

func badRequest(c *gin.Context, message string) {
	middleware.AbortWithError(c, http.StatusBadRequest, message)
}

// currentUserID lit l'identité posée par middleware.Authenticate; la route doit passer par RequireAuth.
func currentUserID(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		middleware.AbortWithError(c, http.StatusUnauthorized, "未授權，請先登入")
	}
	return id, ok
}

var errInvalidID = errors.New("identifiant invalide")

func parseID(c *gin.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
