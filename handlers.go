package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	if db != nil {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "finance-dashboard-api",
	})
}

// getAnalytics returns the dashboard aggregates and the windowed daily
// chart series, with optional Redis caching.
func getAnalytics(c *gin.Context) {
	userID := currentUserID(c)
	ctx := c.Request.Context()

	window := c.DefaultQuery("window", "30d")
	days, err := parseWindow(window)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var analytics Analytics
	if cacheGet(ctx, analyticsCacheKey(userID, window), &analytics) {
		c.JSON(http.StatusOK, analytics)
		return
	}

	transactions, err := store.ListTransactions(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	analytics = Analytics{
		Summary: computeAggregates(transactions),
		Series:  buildChartSeries(transactions, days, time.Now()),
	}

	cacheSet(ctx, analyticsCacheKey(userID, window), analytics, 5*time.Minute)

	c.JSON(http.StatusOK, analytics)
}
