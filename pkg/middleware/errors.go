package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/pkg/apperror"
)

// ErrorHandler はパイプライン上で発生したエラーをJSONエンベロープに変換するGinミドルウェアを返す。
// エラーレスポンスを書き込む唯一の場所であり、RequestIDとRequestLoggerの直後に登録する。
// 内部エラーの原因はログにのみ出力し、クライアントには固定のメッセージを返す。
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := apperror.From(c.Errors.Last().Err)
		attrs := []any{
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"kind", appErr.Kind.String(),
			"code", string(appErr.Code),
		}
		if appErr.Kind == apperror.KindInternal {
			logger.ErrorContext(c.Request.Context(), "リクエスト処理中に内部エラーが発生しました",
				append(attrs, "error", appErr.Error())...)
		} else {
			logger.DebugContext(c.Request.Context(), "リクエストを拒否しました", attrs...)
		}

		// ハンドラが既にレスポンスを書き込んでいる場合は上書きしない
		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(appErr.Status(), apperror.NewEnvelope(appErr, GetRequestID(c)))
	}
}

// NotFound はどのルートにも一致しなかったリクエストに対するハンドラを返す。
// gin.Engine.NoRouteに登録する。
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		Abort(c, apperror.RouteNotFound())
	}
}
