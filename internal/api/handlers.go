package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sovereign-sentinel/internal/connector"
	"sovereign-sentinel/internal/loan"
	"sovereign-sentinel/internal/monitor"
	"sovereign-sentinel/internal/risk"
	"sovereign-sentinel/internal/stress"
)

const serviceVersion = "1.0.0"

func (s *server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Sovereign Sentinel API",
		"version": serviceVersion,
		"status":  "operational",
	})
}

func (s *server) health(c *gin.Context) {
	running := s.deps.Scheduler != nil && s.deps.Scheduler.IsRunning()
	c.JSON(http.StatusOK, gin.H{
		"status":                    "healthy",
		"scheduler_running":         running,
		"environment":               s.deps.Environment,
		"research_agent_available":  s.deps.Research.IsAvailable(),
		"financial_agent_available": s.deps.Analyzer.IsAvailable(),
		"ai_assessor_available":     s.deps.AssessorAvailable,
		"notifier_available":        s.deps.NotifierAvailable,
	})
}

func (s *server) latestContext(c *gin.Context) {
	if s.deps.Provider == nil {
		abortWithDetail(c, http.StatusServiceUnavailable, "OSINT Scout not initialized")
		return
	}
	rc, ok := s.deps.Provider.Current()
	if !ok {
		abortWithDetail(c, http.StatusNotFound, "No risk assessment available")
		return
	}
	c.JSON(http.StatusOK, rc)
}

func (s *server) immediateScan(c *gin.Context) {
	if s.deps.Provider == nil {
		abortWithDetail(c, http.StatusServiceUnavailable, "Scheduler not initialized")
		return
	}
	rc, err := s.deps.Provider.Refresh(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		abortWithDetail(c, http.StatusInternalServerError, "Scan failed: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, rc)
}

func (s *server) scanStatus(c *gin.Context) {
	if s.deps.Scheduler == nil || s.deps.Provider == nil {
		abortWithDetail(c, http.StatusServiceUnavailable, "Scheduler not initialized")
		return
	}
	_, available := s.deps.Provider.Current()
	c.JSON(http.StatusOK, gin.H{
		"is_running":                  s.deps.Scheduler.IsRunning(),
		"interval_minutes":            s.deps.Scheduler.Interval().Minutes(),
		"latest_assessment_available": available,
		"refresh_in_progress":         s.deps.Provider.IsRefreshInProgress(),
	})
}

type analyzeRequest struct {
	Loans []loan.Record `json:"loans" binding:"required,dive"`
	UseAI *bool         `json:"use_ai"`
}

func (s *server) analyze(c *gin.Context) {
	analyzer, ok := s.deps.Analyzer.Get()
	if !ok {
		abortWithDetail(c, http.StatusServiceUnavailable, "Financial Analysis Agent not initialized: "+s.deps.Analyzer.Reason())
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestWithValidation(c, err)
		return
	}
	if err := loan.ValidateAll(req.Loans); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}
	useAI, err := resolveUseAI(req.UseAI, c.Query("use_ai"))
	if err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	rc := s.currentContext()
	result := analyzer.Analyze(req.Loans, rc, risk.MethodFor(useAI))
	if journal, ok := s.journal(); ok {
		journal.RecordAnalysis(c.Request.Context(), "", rc.ID, result)
	}
	c.JSON(http.StatusOK, result)
}

// resolveUseAI 优先使用请求体字段，其次查询参数，默认 true。
func resolveUseAI(body *bool, query string) (bool, error) {
	if body != nil {
		return *body, nil
	}
	if query == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(query)
	if err != nil {
		return false, fmt.Errorf("use_ai must be a boolean, got %q", query)
	}
	return v, nil
}

type extractQuery struct {
	Source       string `form:"source" binding:"required"`
	ConnectionID string `form:"connection_id" binding:"required"`
	TenantID     string `form:"tenant_id"`
	UseAI        *bool  `form:"use_ai"`
}

func (s *server) extract(c *gin.Context) {
	extractor, ok := s.deps.Research.Get()
	if !ok {
		abortWithDetail(c, http.StatusServiceUnavailable, "Research Agent not initialized: "+s.deps.Research.Reason())
		return
	}

	var q extractQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequestWithValidation(c, err)
		return
	}

	records, ok := s.runExtraction(c, extractor, q)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source": q.Source,
		"loans":  records,
		"count":  len(records),
		"status": "success",
	})
}

func (s *server) extractAndAnalyze(c *gin.Context) {
	extractor, ok := s.deps.Research.Get()
	if !ok {
		abortWithDetail(c, http.StatusServiceUnavailable, "Research Agent not initialized: "+s.deps.Research.Reason())
		return
	}
	analyzer, ok := s.deps.Analyzer.Get()
	if !ok {
		abortWithDetail(c, http.StatusServiceUnavailable, "Financial Analysis Agent not initialized: "+s.deps.Analyzer.Reason())
		return
	}

	var q extractQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequestWithValidation(c, err)
		return
	}

	records, ok := s.runExtraction(c, extractor, q)
	if !ok {
		return
	}

	useAI := q.UseAI == nil || *q.UseAI
	rc := s.currentContext()
	result := analyzer.Analyze(records, rc, risk.MethodFor(useAI))
	if journal, ok := s.journal(); ok {
		journal.RecordAnalysis(c.Request.Context(), q.Source, rc.ID, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"source":          q.Source,
		"extracted_count": result.TotalLoans,
		"flagged_count":   result.FlaggedCount,
		"analysis_method": result.Method,
		"flagged_loans":   result.Flagged,
	})
}

// runExtraction 执行抽取，失败时写入响应并返回 false。
func (s *server) runExtraction(c *gin.Context, extractor Extractor, q extractQuery) ([]loan.Record, bool) {
	records, err := extractor.Extract(c.Request.Context(), q.Source, connector.Request{
		ConnectionID: q.ConnectionID,
		TenantID:     q.TenantID,
	})
	if err != nil {
		status := extractionStatus(err)
		if status == http.StatusInternalServerError {
			if journal, ok := s.journal(); ok {
				journal.RecordExtractionFailure(c.Request.Context(), q.Source, q.ConnectionID, err)
			}
		}
		_ = c.Error(err)
		abortWithDetail(c, status, err.Error())
		return nil, false
	}
	if records == nil {
		records = []loan.Record{}
	}
	return records, true
}

type stressRequest struct {
	Loans     []loan.Record     `json:"loans" binding:"required,dive"`
	Scenarios []stress.Scenario `json:"scenarios" binding:"dive"`
}

func (s *server) stressTest(c *gin.Context) {
	if s.deps.Stress == nil {
		abortWithDetail(c, http.StatusServiceUnavailable, "Stress engine not initialized")
		return
	}

	var req stressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestWithValidation(c, err)
		return
	}
	if err := loan.ValidateAll(req.Loans); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := stress.ValidateScenarios(req.Scenarios); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	rc := s.currentContext()
	results, err := s.deps.Stress.Run(c.Request.Context(), req.Loans, rc, req.Scenarios)
	if err != nil {
		_ = c.Error(err)
		abortWithDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	if journal, ok := s.journal(); ok {
		names := make([]string, 0, len(results))
		for _, r := range results {
			names = append(names, r.Name)
		}
		journal.RecordStress(c.Request.Context(), len(req.Loans), names)
	}

	c.JSON(http.StatusOK, gin.H{
		"context_id":  rc.ID,
		"total_loans": len(req.Loans),
		"results":     results,
	})
}

type eventsQuery struct {
	Type  string `form:"type"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

func (s *server) events(c *gin.Context) {
	journal, ok := s.journal()
	if !ok {
		abortWithDetail(c, http.StatusServiceUnavailable, "Event journal not initialized: "+s.deps.Journal.Reason())
		return
	}

	var q eventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequestWithValidation(c, err)
		return
	}
	eventType, valid := monitor.ParseEventType(q.Type)
	if !valid {
		abortWithDetail(c, http.StatusBadRequest, "unknown event type: "+q.Type)
		return
	}

	events, err := journal.ListEvents(c.Request.Context(), eventType, q.Limit)
	if err != nil {
		s.logger.Error("查询事件失败", zap.Error(err))
		abortWithDetail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}
