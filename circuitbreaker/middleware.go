package circuitbreaker

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware 创建 Gin 熔断中间件
//
// 用于服务端对下游路由做故障隔离：被熔断的请求返回 503。
// 响应状态码 >= 500 或 handler 写入了 c.Errors 的请求计为一次错误。
//
// 参数:
//   - resourceFunc: 从请求中提取熔断资源名的函数，nil 时默认使用请求路径
//
// 使用示例:
//
//	r := gin.New()
//	r.Use(group.GinMiddleware(nil))
func (g *Group) GinMiddleware(resourceFunc func(*gin.Context) string) gin.HandlerFunc {
	if resourceFunc == nil {
		resourceFunc = func(c *gin.Context) string {
			return c.Request.URL.Path
		}
	}

	return func(c *gin.Context) {
		resource := resourceFunc(c)
		if resource == "" {
			c.Next()
			return
		}

		entry := NewEntry()
		defer entry.Exit()

		if !g.TryPass(resource, entry) {
			g.recordReject(c.Request.Context(), resource, c.Request.Method)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "circuit breaker open",
			})
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		var err error
		if c.Writer.Status() >= http.StatusInternalServerError {
			err = errServerFailure
		}
		if len(c.Errors) > 0 {
			err = c.Errors.Last()
		}

		g.OnRequestComplete(resource, uint64(elapsed.Milliseconds()), err)
		g.recordRequest(c.Request.Context(), resource, c.Request.Method, elapsed, err)
	}
}
