package http

import (
	"github.com/gin-gonic/gin"

	"github.com/opencivic/civicflow/internal/models"
	"github.com/opencivic/civicflow/internal/workflow"
)

// reportIssue handles POST /api/v1/issues
func (s *Server) reportIssue(c *gin.Context) {
	var input workflow.ReportIssueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid issue payload: "+err.Error())
		return
	}

	issue, err := s.engine.ReportIssue(c.Request.Context(), currentActor(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, issue)
}

// IssueListRequest are the query parameters for GET /api/v1/issues
type IssueListRequest struct {
	Stage    string `form:"stage"`
	Status   string `form:"status"`
	Category string `form:"category"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// listIssues handles GET /api/v1/issues
func (s *Server) listIssues(c *gin.Context) {
	var req IssueListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, "invalid query parameters")
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	issues, err := s.engine.ListIssues(c.Request.Context(), currentActor(c), workflow.IssueListOptions{
		Stage:    models.IssueStage(req.Stage),
		Status:   models.IssueStatus(req.Status),
		Category: models.IssueCategory(req.Category),
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, issues)
}

// getIssue handles GET /api/v1/issues/:id
func (s *Server) getIssue(c *gin.Context) {
	issue, err := s.engine.GetIssue(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, issue)
}

// listAssignments handles GET /api/v1/issues/:id/assignments
func (s *Server) listAssignments(c *gin.Context) {
	assignments, err := s.engine.ListAssignments(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, assignments)
}

// AssignRequest is the payload for POST /api/v1/issues/:id/assign
type AssignRequest struct {
	DepartmentID string `json:"department_id" binding:"required"`
	Notes        string `json:"notes"`
}

// assignToDepartment handles POST /api/v1/issues/:id/assign
func (s *Server) assignToDepartment(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid assignment payload: "+err.Error())
		return
	}

	issue, err := s.engine.AssignToDepartment(c.Request.Context(), currentActor(c), c.Param("id"), req.DepartmentID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, issue)
}

// createTender handles POST /api/v1/issues/:id/tender
func (s *Server) createTender(c *gin.Context) {
	var input workflow.CreateTenderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid tender payload: "+err.Error())
		return
	}

	tender, err := s.engine.CreateTender(c.Request.Context(), currentActor(c), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, tender)
}

// ResolveRequest is the payload for POST /api/v1/issues/:id/resolve
type ResolveRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// markCompleteDirectly handles POST /api/v1/issues/:id/resolve
func (s *Server) markCompleteDirectly(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid resolve payload")
		return
	}

	issue, err := s.engine.MarkCompleteDirectly(c.Request.Context(), currentActor(c), c.Param("id"), req.ResolutionNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, issue)
}

// StatusRequest is the payload for PATCH /api/v1/issues/:id/status
type StatusRequest struct {
	Status models.IssueStatus `json:"status" binding:"required"`
}

// updateIssueStatus handles PATCH /api/v1/issues/:id/status
func (s *Server) updateIssueStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid status payload")
		return
	}

	issue, err := s.engine.UpdateIssueStatus(c.Request.Context(), currentActor(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, issue)
}
