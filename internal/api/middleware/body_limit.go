package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/pkg/response"
)

// BodyLimit 请求体大小限制。
// multipart/form-data（ICS 文件上传）使用 uploadLimit，其余请求使用 jsonLimit；
// Content-Length 已知且超限时直接返回 413，分块上传由 MaxBytesReader 在读取时截断。
func BodyLimit(jsonLimit, uploadLimit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}

		limit := jsonLimit
		if isMultipart(c.GetHeader("Content-Type")) {
			limit = uploadLimit
		}
		if limit <= 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > limit {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func isMultipart(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "multipart/form-data"
}
