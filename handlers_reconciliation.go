package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swifteats/finance_backend/models"
	"github.com/swifteats/finance_backend/models/reports"
)

func createReconciliationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewReconciliation
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		reconciliation, err := models.CreateReconciliation(c.Request.Context(), &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusCreated, reconciliation)
	}
}

func getReconciliationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		reconciliation, err := models.GetReconciliation(c.Request.Context(), id)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, reconciliation)
	}
}

func listReconciliationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.ReconciliationStatus
		if raw := c.Query("status"); raw != "" {
			s := models.ReconciliationStatus(raw)
			if !s.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
			status = &s
		}
		reconciliations, err := models.GetReconciliations(c.Request.Context(), status, queryLimit(c))
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, reconciliations)
	}
}

func addActualTotalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.ActualTotalsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		reconciliation, err := models.AddActualTotals(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, reconciliation)
	}
}

func addReconciliationIssueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewReconciliationIssue
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		reconciliation, err := models.AddReconciliationIssue(c.Request.Context(), id, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, reconciliation)
	}
}

func resolveReconciliationIssueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		index, err := strconv.Atoi(c.Param("index"))
		if err != nil || index < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
			return
		}
		var input models.ResolveIssueInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		reconciliation, err := models.ResolveReconciliationIssue(c.Request.Context(), id, index, &input)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, reconciliation)
	}
}

func consistencyCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		issues, err := models.RunConsistencyChecks(c.Request.Context())
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"issues": issues, "count": len(issues)})
	}
}

func historiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		referenceType := c.Query("reference_type")
		referenceId, err := strconv.Atoi(c.Query("reference_id"))
		if referenceType == "" || err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference_type and reference_id are required"})
			return
		}
		histories, err := models.GetHistories(c.Request.Context(), referenceType, referenceId)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": histories})
	}
}

func summaryRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if from == nil || to == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return time.Time{}, time.Time{}, false
	}
	return *from, *to, true
}

func dailyFinanceSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, ok := summaryRange(c)
		if !ok {
			return
		}
		summary, err := reports.GetDailyFinanceSummary(c.Request.Context(), from, to)
		if err != nil {
			writeModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func dailyFinanceSummaryExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, ok := summaryRange(c)
		if !ok {
			return
		}
		if err := reports.ExportDailyFinanceSummaryExcel(c.Request.Context(), c.Writer, from, to); err != nil {
			writeModelError(c, err)
		}
	}
}
