package main

import (
	"github.com/gin-gonic/gin"

	"prepaid-telecom/internal/httpapi"
	"prepaid-telecom/internal/rbac"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal services.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// Token issuance (public).
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/manager/login", h.ManagerLogin)
		authGroup.POST("/subscriber/login", h.SubscriberLogin)
	}

	protected := v1.Group("")
	protected.Use(authMW)

	// Subscriber surface: credit, calls, history.
	sub := protected.Group("")
	sub.Use(rbac.RequireAnyRole(rbac.RoleSubscriber))
	{
		sub.GET("/me/credit", h.MyCredit)
		sub.GET("/me/history", h.MyHistory)
		sub.POST("/me/history/:id/read", h.MarkHistoryRead)

		// PlaceCall blocks for the whole call; answer/hangup signal the
		// session registry from the other side.
		sub.POST("/calls", h.PlaceCall)
		sub.POST("/calls/answer", h.AnswerCall)
		sub.POST("/calls/hangup", h.HangupCall)
	}

	// Manager (back-office) surface: operators, numbers, credit sales, cash.
	mgr := protected.Group("")
	mgr.Use(rbac.RequireAnyRole(rbac.RoleManager))
	{
		mgr.POST("/operators", h.CreateOperator)
		mgr.GET("/operators", h.ListOperators)
		mgr.PATCH("/operators/:name", h.RenameOperator)
		mgr.GET("/operators/:name/numbers", h.ListOperatorNumbers)
		mgr.POST("/operators/:name/indexes", h.AddOperatorIndex)
		mgr.DELETE("/operators/:name/indexes/:index", h.RemoveOperatorIndex)

		mgr.POST("/numbers/sell", h.SellNumber)
		mgr.POST("/credit/sell", h.SellCredit)
		mgr.GET("/cashier", h.CashState)
	}
}
