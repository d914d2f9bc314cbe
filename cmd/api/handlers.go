package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bakehouse-platform/production-service/pkg/api"
	"github.com/bakehouse-platform/production-service/pkg/errors"
	"github.com/bakehouse-platform/production-service/pkg/logging"
	"github.com/bakehouse-platform/production-service/pkg/middleware"

	"github.com/bakehouse-platform/production-service/internal/application"
)

// respond sends the service result or maps the error onto the standard
// error envelope
func respond(c *gin.Context, responder *middleware.ErrorResponder, status int, result interface{}, err error) {
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}
	c.JSON(status, result)
}

// paginate slices a full result set into the requested page
func paginate(batches []application.BatchListDTO, page api.PageRequest) api.PageResponse[application.BatchListDTO] {
	total := int64(len(batches))
	offset := page.GetOffset()
	if offset > total {
		offset = total
	}
	end := offset + page.GetLimit()
	if end > total {
		end = total
	}
	return api.NewPageResponse(batches[offset:end], page.Page, page.PageSize, total)
}

// Schedule handlers

func createScheduleHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req application.CreateScheduleRequest
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd, err := application.ToCreateScheduleCommand(req)
		if err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"schedule.date": req.ScheduleDate,
			"staff.count":   len(req.Staff),
		})

		schedule, err := service.CreateSchedule(c.Request.Context(), cmd)
		respond(c, responder, http.StatusCreated, schedule, err)
	}
}

func getScheduleHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetScheduleQuery{ScheduleID: c.Param("scheduleId")}
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"schedule.id": query.ScheduleID,
		})

		schedule, err := service.GetSchedule(c.Request.Context(), query)
		respond(c, responder, http.StatusOK, schedule, err)
	}
}

func getScheduleByDateHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		date, err := time.Parse("2006-01-02", c.Param("date"))
		if err != nil {
			responder.RespondBadRequest("invalid date, expected YYYY-MM-DD")
			return
		}

		schedule, err := service.GetScheduleByDate(c.Request.Context(), application.GetScheduleByDateQuery{Date: date})
		respond(c, responder, http.StatusOK, schedule, err)
	}
}

func planScheduleHandler(service *application.ProductionApplicationService, logger *logging.Logger, pm *middleware.ProductionMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		scheduleID := c.Param("scheduleId")

		var req application.PlanScheduleRequest
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"schedule.id":  scheduleID,
			"demand.items": len(req.Demand),
		})

		result, err := service.PlanSchedule(c.Request.Context(), application.ToPlanScheduleCommand(scheduleID, req))
		if err == nil {
			status := "clean"
			if len(result.Conflicts) > 0 {
				status = "conflicts"
			}
			pm.RecordSchedulePlanned(status)
		}
		respond(c, responder, http.StatusOK, result, err)
	}
}

func activateScheduleHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		scheduleID := c.Param("scheduleId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"schedule.id": scheduleID,
		})

		schedule, err := service.ActivateSchedule(c.Request.Context(), application.ActivateScheduleCommand{ScheduleID: scheduleID})
		respond(c, responder, http.StatusOK, schedule, err)
	}
}

func cancelScheduleHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		scheduleID := c.Param("scheduleId")

		var req struct {
			Reason string `json:"reason" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"schedule.id":           scheduleID,
			"schedule.cancelReason": req.Reason,
		})

		schedule, err := service.CancelSchedule(c.Request.Context(), application.CancelScheduleCommand{
			ScheduleID: scheduleID,
			Reason:     req.Reason,
		})
		respond(c, responder, http.StatusOK, schedule, err)
	}
}

func listScheduleBatchesHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		scheduleID := c.Param("scheduleId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"schedule.id": scheduleID,
		})

		batches, err := service.GetBatchesBySchedule(c.Request.Context(), application.GetBatchesByScheduleQuery{ScheduleID: scheduleID})
		respond(c, responder, http.StatusOK, batches, err)
	}
}

// Batch handlers

func getBatchHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetBatchQuery{BatchID: c.Param("batchId")}
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id": query.BatchID,
		})

		batch, err := service.GetBatch(c.Request.Context(), query)
		respond(c, responder, http.StatusOK, batch, err)
	}
}

func getBatchStatusHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetBatchQuery{BatchID: c.Param("batchId")}
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id": query.BatchID,
		})

		status, err := service.GetBatchStatus(c.Request.Context(), query)
		respond(c, responder, http.StatusOK, status, err)
	}
}

func getBatchesByStatusHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		status := c.Param("status")
		page := api.ParsePagination(c)
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.status": status,
		})

		batches, err := service.GetBatchesByStatus(c.Request.Context(), application.GetBatchesByStatusQuery{Status: status})
		if err != nil {
			respond(c, responder, http.StatusOK, nil, err)
			return
		}
		respond(c, responder, http.StatusOK, paginate(batches, page), nil)
	}
}

func getActiveBatchesHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		page := api.ParsePagination(c)
		batches, err := service.GetActiveBatches(c.Request.Context())
		if err != nil {
			respond(c, responder, http.StatusOK, nil, err)
			return
		}
		respond(c, responder, http.StatusOK, paginate(batches, page), nil)
	}
}

func startBatchHandler(service *application.ProductionApplicationService, logger *logging.Logger, pm *middleware.ProductionMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batchID := c.Param("batchId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id": batchID,
		})

		batch, err := service.StartBatch(c.Request.Context(), application.StartBatchCommand{BatchID: batchID})
		if err == nil {
			pm.RecordBatchStarted(batch.Priority)
		}
		respond(c, responder, http.StatusOK, batch, err)
	}
}

func pauseBatchHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batchID := c.Param("batchId")

		var req struct {
			Reason string `json:"reason" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id":          batchID,
			"batch.pauseReason": req.Reason,
		})

		batch, err := service.PauseBatch(c.Request.Context(), application.PauseBatchCommand{
			BatchID: batchID,
			Reason:  req.Reason,
		})
		respond(c, responder, http.StatusOK, batch, err)
	}
}

func resumeBatchHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batchID := c.Param("batchId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id": batchID,
		})

		batch, err := service.ResumeBatch(c.Request.Context(), application.ResumeBatchCommand{BatchID: batchID})
		respond(c, responder, http.StatusOK, batch, err)
	}
}

func cancelBatchHandler(service *application.ProductionApplicationService, logger *logging.Logger, pm *middleware.ProductionMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batchID := c.Param("batchId")

		var req struct {
			Reason string `json:"reason" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id":           batchID,
			"batch.cancelReason": req.Reason,
		})

		batch, err := service.CancelBatch(c.Request.Context(), application.CancelBatchCommand{
			BatchID: batchID,
			Reason:  req.Reason,
		})
		if err == nil {
			pm.RecordBatchCompleted(batch.Status)
		}
		respond(c, responder, http.StatusOK, batch, err)
	}
}

func failBatchHandler(service *application.ProductionApplicationService, logger *logging.Logger, pm *middleware.ProductionMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batchID := c.Param("batchId")

		var req struct {
			Reason string `json:"reason" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id":         batchID,
			"batch.failReason": req.Reason,
		})

		batch, err := service.FailBatch(c.Request.Context(), application.FailBatchCommand{
			BatchID: batchID,
			Reason:  req.Reason,
		})
		if err == nil {
			pm.RecordBatchCompleted(batch.Status)
		}
		respond(c, responder, http.StatusOK, batch, err)
	}
}

// Step handlers

func stepIndexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("stepIndex"))
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

func startStepHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batchID := c.Param("batchId")
		stepIndex, ok := stepIndexParam(c)
		if !ok {
			responder.RespondBadRequest("invalid step index")
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id":   batchID,
			"step.index": stepIndex,
		})

		batch, err := service.StartStep(c.Request.Context(), application.StartStepCommand{
			BatchID:   batchID,
			StepIndex: stepIndex,
		})
		respond(c, responder, http.StatusOK, batch, err)
	}
}

func completeStepHandler(service *application.ProductionApplicationService, logger *logging.Logger, pm *middleware.ProductionMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batchID := c.Param("batchId")
		stepIndex, ok := stepIndexParam(c)
		if !ok {
			responder.RespondBadRequest("invalid step index")
			return
		}

		var req struct {
			CompletedActivities []string `json:"completedActivities"`
			ActualQuantity      *int     `json:"actualQuantity"`
			Notes               string   `json:"notes"`
		}
		if c.Request.ContentLength > 0 {
			if appErr := api.BindAndValidate(c, &req); appErr != nil {
				responder.RespondWithAppError(appErr)
				return
			}
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id":   batchID,
			"step.index": stepIndex,
		})

		result, err := service.CompleteStep(c.Request.Context(), application.CompleteStepCommand{
			BatchID:             batchID,
			StepIndex:           stepIndex,
			CompletedActivities: req.CompletedActivities,
			ActualQuantity:      req.ActualQuantity,
			Notes:               req.Notes,
		})
		if err == nil && result.Batch != nil {
			if stepIndex < len(result.Batch.Steps) {
				pm.RecordStepCompleted(result.Batch.Steps[stepIndex].Kind)
			}
			if result.Batch.Status == "completed" {
				pm.RecordBatchCompleted(result.Batch.Status)
			}
		}
		respond(c, responder, http.StatusOK, result, err)
	}
}

func updateStepProgressHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batchID := c.Param("batchId")
		stepIndex, ok := stepIndexParam(c)
		if !ok {
			responder.RespondBadRequest("invalid step index")
			return
		}

		var req struct {
			Progress *float64 `json:"progress" binding:"omitempty,min=0,max=100"`
			Status   *string  `json:"status"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		if req.Progress == nil && req.Status == nil {
			responder.RespondBadRequest("progress or status is required")
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id":   batchID,
			"step.index": stepIndex,
		})

		result, err := service.UpdateStepProgress(c.Request.Context(), application.UpdateStepProgressCommand{
			BatchID:   batchID,
			StepIndex: stepIndex,
			Progress:  req.Progress,
			Status:    req.Status,
		})
		respond(c, responder, http.StatusOK, result, err)
	}
}

// Issue and quality handlers

func reportIssueHandler(service *application.ProductionApplicationService, logger *logging.Logger, pm *middleware.ProductionMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batchID := c.Param("batchId")

		var req struct {
			StepID      string `json:"stepId"`
			Type        string `json:"type" binding:"required"`
			Severity    string `json:"severity" binding:"required"`
			Description string `json:"description" binding:"required"`
			ReportedBy  string `json:"reportedBy" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id":       batchID,
			"issue.severity": req.Severity,
			"issue.type":     req.Type,
		})

		batch, err := service.ReportIssue(c.Request.Context(), application.ReportIssueCommand{
			BatchID:     batchID,
			StepID:      req.StepID,
			Type:        req.Type,
			Severity:    req.Severity,
			Description: req.Description,
			ReportedBy:  req.ReportedBy,
		})
		if err == nil {
			pm.RecordIssueReported(req.Severity)
		}
		respond(c, responder, http.StatusCreated, batch, err)
	}
}

func resolveIssueHandler(service *application.ProductionApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batchID := c.Param("batchId")
		issueID := c.Param("issueId")

		var req struct {
			Resolution string `json:"resolution" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id": batchID,
			"issue.id": issueID,
		})

		batch, err := service.ResolveIssue(c.Request.Context(), application.ResolveIssueCommand{
			BatchID:    batchID,
			IssueID:    issueID,
			Resolution: req.Resolution,
		})
		respond(c, responder, http.StatusOK, batch, err)
	}
}

func qualityCheckHandler(service *application.ProductionApplicationService, logger *logging.Logger, pm *middleware.ProductionMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batchID := c.Param("batchId")

		var req struct {
			StepID      string                       `json:"stepId" binding:"required"`
			PerformedBy string                       `json:"performedBy" binding:"required"`
			Checks      []application.CheckResultDTO `json:"checks"`
			Notes       string                       `json:"notes"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"batch.id":       batchID,
			"quality.stepId": req.StepID,
		})

		batch, err := service.PerformQualityCheck(c.Request.Context(), application.QualityCheckCommand{
			BatchID:     batchID,
			StepID:      req.StepID,
			PerformedBy: req.PerformedBy,
			Checks:      req.Checks,
			Notes:       req.Notes,
		})
		if err == nil {
			for _, step := range batch.Steps {
				if step.StepID == req.StepID && len(step.QualityResults) > 0 {
					pm.RecordQualityCheck(step.QualityResults[len(step.QualityResults)-1].Passed)
				}
			}
		}
		respond(c, responder, http.StatusCreated, batch, err)
	}
}
