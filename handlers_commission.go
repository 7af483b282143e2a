package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/swifteats/finance_backend/models"
)

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryLimit(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return limit
}

func createCommissionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCommission
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		commission, err := models.CreateCommission(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, commission)
	}
}

func getCommissionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		commission, err := models.GetCommission(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, commission)
	}
}

func listCommissionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.CommissionStatus
		if raw := c.Query("status"); raw != "" {
			s := models.CommissionStatus(raw)
			if !s.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
			status = &s
		}
		var beneficiaryType *models.BeneficiaryType
		if raw := c.Query("beneficiary_type"); raw != "" {
			t := models.BeneficiaryType(raw)
			if !t.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid beneficiary_type"})
				return
			}
			beneficiaryType = &t
		}
		var beneficiaryId *int
		if raw := c.Query("beneficiary_id"); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid beneficiary_id"})
				return
			}
			beneficiaryId = &id
		}
		commissions, err := models.GetCommissions(c.Request.Context(), status, beneficiaryType, beneficiaryId, queryLimit(c))
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, commissions)
	}
}

func approveCommissionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		commission, err := models.ApproveCommission(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, commission)
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func cancelCommissionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		// reason is optional, tolerate an empty body
		var req cancelRequest
		_ = c.ShouldBindJSON(&req)
		commission, err := models.CancelCommission(c.Request.Context(), id, req.Reason)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, commission)
	}
}

func commissionStatisticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		beneficiaryType := models.BeneficiaryType(c.Query("beneficiary_type"))
		if !beneficiaryType.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid beneficiary_type"})
			return
		}
		beneficiaryId, err := strconv.Atoi(c.Query("beneficiary_id"))
		if err != nil || beneficiaryId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid beneficiary_id"})
			return
		}
		statistics, err := models.GetCommissionStatistics(c.Request.Context(), beneficiaryType, beneficiaryId)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, statistics)
	}
}
