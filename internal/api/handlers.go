package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/crisis-triage-mcp-server/internal/domain"
	"github.com/crisis-triage-mcp-server/internal/middleware"
	"github.com/crisis-triage-mcp-server/internal/service"
)

type scoreRequest struct {
	Responses map[string]int `json:"responses" binding:"required"`
}

type scoreResponse struct {
	Total    int                       `json:"total"`
	Warnings []*domain.ValidationError `json:"warnings"`
}

type actionsResponse struct {
	Tier    domain.RiskTier `json:"tier"`
	Actions []string        `json:"actions"`
}

func (s *Server) handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	responses, warnings := domain.ParseQuestionnaire(req.Responses)
	if warnings == nil {
		warnings = []*domain.ValidationError{}
	}
	c.JSON(http.StatusOK, scoreResponse{
		Total:    service.ComputeTotal(responses),
		Warnings: warnings,
	})
}

// handleClassify scores without storing anything.
func (s *Server) handleClassify(c *gin.Context) {
	var params service.AssessmentParams
	if err := c.ShouldBindJSON(&params); err != nil {
		s.respondBindError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.triage.Simulate(c.Request.Context(), &params))
}

func (s *Server) handleActions(c *gin.Context) {
	tier, err := domain.ParseRiskTier(c.Param("tier"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, actionsResponse{Tier: tier, Actions: service.ResolveActions(tier)})
}

func (s *Server) handleRegisterPatient(c *gin.Context) {
	var params service.RegisterPatientParams
	if err := c.ShouldBindJSON(&params); err != nil {
		s.respondBindError(c, err)
		return
	}

	patient, err := s.triage.RegisterPatient(c.Request.Context(), &params)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

func (s *Server) handleListPatients(c *gin.Context) {
	patients, err := s.triage.ListPatients(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patients)
}

func (s *Server) handleGetPatient(c *gin.Context) {
	patient, err := s.triage.GetPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (s *Server) handleSubmitAssessment(c *gin.Context) {
	var params service.AssessmentParams
	if err := c.ShouldBindJSON(&params); err != nil {
		s.respondBindError(c, err)
		return
	}

	result, err := s.triage.SubmitAssessment(c.Request.Context(), c.Param("id"), &params)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleTriageBoard(c *gin.Context) {
	board, err := s.triage.TriageBoard(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (s *Server) handleListAlerts(c *gin.Context) {
	unreadOnly := false
	if raw := c.Query("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, domain.NewTriageError(
				domain.ErrCodeInvalidInput, "unread must be a boolean", raw, c.GetString(middleware.CorrelationIDKey)))
			return
		}
		unreadOnly = v
	}

	alerts, err := s.triage.ListAlerts(c.Request.Context(), unreadOnly)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (s *Server) handleMarkAlertRead(c *gin.Context) {
	alert, err := s.triage.MarkAlertRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}
