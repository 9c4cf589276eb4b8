package http

import (
	"github.com/gin-gonic/gin"

	"github.com/opencivic/civicflow/internal/models"
	"github.com/opencivic/civicflow/internal/workflow"
)

// TenderListRequest are the query parameters for GET /api/v1/tenders
type TenderListRequest struct {
	Status   string `form:"status"`
	Stage    string `form:"stage"`
	Category string `form:"category"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// listTenders handles GET /api/v1/tenders
func (s *Server) listTenders(c *gin.Context) {
	var req TenderListRequest
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

	tenders, err := s.engine.ListTenders(c.Request.Context(), currentActor(c), workflow.TenderListOptions{
		Status:   models.TenderStatus(req.Status),
		Stage:    models.TenderStage(req.Stage),
		Category: models.IssueCategory(req.Category),
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tenders)
}

// listContractorTenders handles GET /api/v1/tenders/mine
func (s *Server) listContractorTenders(c *gin.Context) {
	tenders, err := s.engine.ListContractorTenders(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tenders)
}

// submitBid handles POST /api/v1/tenders/:id/bids
func (s *Server) submitBid(c *gin.Context) {
	var input workflow.SubmitBidInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid bid payload: "+err.Error())
		return
	}

	bid, err := s.engine.SubmitBid(c.Request.Context(), currentActor(c), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, bid)
}

// listBids handles GET /api/v1/tenders/:id/bids
func (s *Server) listBids(c *gin.Context) {
	bids, err := s.engine.ListBids(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, bids)
}

// listMyBids handles GET /api/v1/bids
func (s *Server) listMyBids(c *gin.Context) {
	bids, err := s.engine.ListMyBids(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, bids)
}

// acceptBid handles POST /api/v1/bids/:id/accept
func (s *Server) acceptBid(c *gin.Context) {
	tender, err := s.engine.AcceptBid(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tender)
}

// startWork handles POST /api/v1/tenders/:id/start
func (s *Server) startWork(c *gin.Context) {
	tender, err := s.engine.StartWork(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tender)
}

// submitProgress handles POST /api/v1/tenders/:id/progress
func (s *Server) submitProgress(c *gin.Context) {
	var input workflow.SubmitProgressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid progress payload: "+err.Error())
		return
	}

	report, err := s.engine.SubmitProgress(c.Request.Context(), currentActor(c), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, report)
}

// listProgress handles GET /api/v1/tenders/:id/progress
func (s *Server) listProgress(c *gin.Context) {
	reports, err := s.engine.ListProgress(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, reports)
}

// VerifyRequest is the payload for POST /api/v1/progress/:id/verify
type VerifyRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// verifyWork handles POST /api/v1/progress/:id/verify
func (s *Server) verifyWork(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid verification payload")
		return
	}

	report, err := s.engine.VerifyWork(c.Request.Context(), currentActor(c), c.Param("id"), req.Approve, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, report)
}
