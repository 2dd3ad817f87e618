package app

import (
	"course_cache_engine/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// 只读检查接口
	courses := router.Group("/api/courses/:courseId")
	{
		courses.GET("/tree", c.courseCache.GetTree)
		courses.GET("/find", c.courseCache.Find)
		courses.GET("/students/:studentId/points", c.courseCache.GetPoints)
		courses.GET("/students/:studentId/thresholds/:thresholdId", c.courseCache.IsPassed)
	}
}
