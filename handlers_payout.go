package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swifteats/finance_backend/models"
)

func createPayoutBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPayoutBatch
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		batch, err := models.CreatePayoutBatchFromCommissions(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, batch)
	}
}

func getPayoutBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		batch, err := models.GetPayoutBatch(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

func listPayoutBatchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.PayoutBatchStatus
		if raw := c.Query("status"); raw != "" {
			s := models.PayoutBatchStatus(raw)
			if !s.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
			status = &s
		}
		batches, err := models.GetPayoutBatches(c.Request.Context(), status, queryLimit(c))
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, batches)
	}
}

func approvePayoutBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.ApprovePayoutBatchInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		batch, err := models.ApprovePayoutBatch(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

type completePayoutBatchRequest struct {
	// item id -> provider transaction id
	TransactionIds map[int]string `json:"transaction_ids"`
}

func completePayoutBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req completePayoutBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		result, err := models.CompletePayoutBatch(c.Request.Context(), id, req.TransactionIds)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func cancelPayoutBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req cancelRequest
		_ = c.ShouldBindJSON(&req)
		batch, err := models.CancelPayoutBatch(c.Request.Context(), id, req.Reason)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &parsed, true
}

func payoutStatisticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, ok := parseTimeQuery(c, "from")
		if !ok {
			return
		}
		to, ok := parseTimeQuery(c, "to")
		if !ok {
			return
		}
		statistics, err := models.GetPayoutStatistics(c.Request.Context(), from, to)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, statistics)
	}
}
