package router

import (
	"github.com/blues/ces/internal/config"
	"github.com/blues/ces/internal/escrow"
	"github.com/blues/ces/internal/handler"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, registry *escrow.Registry, cfg *config.Config) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "crowdfunding-escrow-service",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		projectHandler := handler.NewProjectHandler(db, registry)
		contributeHandler := handler.NewContributeHandler(db, registry)
		refundHandler := handler.NewRefundHandler(db, registry)
		payoutHandler := handler.NewPayoutHandler(db, registry)
		contributeRecordHandler := handler.NewContributeRecordHandler(db)
		refundRecordHandler := handler.NewRefundRecordHandler(db)

		// 平台统计
		v1.GET("/stats", projectHandler.GetPlatformStats)

		// 项目相关路由
		projects := v1.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.GetProjects)
			projects.GET("/:address", projectHandler.GetProject)
			projects.PUT("/:address", projectHandler.UpdateProject)
			projects.DELETE("/:address", projectHandler.DeleteProject)
			projects.POST("/:address/contribute", contributeHandler.Contribute)
			projects.POST("/:address/refund", refundHandler.RequestRefund)
			projects.POST("/:address/payout", payoutHandler.PayOut)
			projects.GET("/:address/stats", projectHandler.GetProjectStats)
			projects.GET("/:address/backers", projectHandler.GetProjectBackers)
			projects.GET("/:address/contributions", contributeRecordHandler.GetProjectContributions)
			projects.GET("/:address/refunds", refundRecordHandler.GetProjectRefunds)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
