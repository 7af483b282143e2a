package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/swifteats/finance_backend/models"
)

func createSettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSettlement
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		settlement, err := models.CreateSettlement(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, settlement)
	}
}

func getSettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		settlement, err := models.GetSettlement(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, settlement)
	}
}

func listSettlementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.SettlementStatus
		if raw := c.Query("status"); raw != "" {
			s := models.SettlementStatus(raw)
			if !s.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
			status = &s
		}
		var entityType *models.SettlementEntityType
		if raw := c.Query("entity_type"); raw != "" {
			t := models.SettlementEntityType(raw)
			if !t.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity_type"})
				return
			}
			entityType = &t
		}
		var entityId *int
		if raw := c.Query("entity_id"); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity_id"})
				return
			}
			entityId = &id
		}
		settlements, err := models.GetSettlements(c.Request.Context(), status, entityType, entityId, queryLimit(c))
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, settlements)
	}
}

type approveSettlementRequest struct {
	Note string `json:"note"`
}

func approveSettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req approveSettlementRequest
		_ = c.ShouldBindJSON(&req)
		settlement, err := models.ApproveSettlement(c.Request.Context(), id, req.Note)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, settlement)
	}
}

type linkSettlementRequest struct {
	PayoutBatchId int `json:"payout_batch_id"`
}

func linkSettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req linkSettlementRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.PayoutBatchId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payout_batch_id is required"})
			return
		}
		settlement, err := models.LinkSettlementToPayoutBatch(c.Request.Context(), id, req.PayoutBatchId)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, settlement)
	}
}

func cancelSettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req cancelRequest
		_ = c.ShouldBindJSON(&req)
		settlement, err := models.CancelSettlement(c.Request.Context(), id, req.Reason)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, settlement)
	}
}
