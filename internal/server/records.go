package server

import (
	"github.com/gin-gonic/gin"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
)

func (s *Server) ListRecords(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	s.listRecords(c, user.UserID)
}

// ListAllRecords searches across every user.
func (s *Server) ListAllRecords(c *gin.Context) {
	s.listRecords(c, "")
}

func (s *Server) listRecords(c *gin.Context, userID string) {
	var req recorddomain.ListRecordRequest
	if err := bindQuery(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	req.UserID = userID

	resp, err := s.recordSvc.GetRecords(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"records": resp.Records, "total": resp.Total})
}

func (s *Server) GetRecord(c *gin.Context) {
	record, ok := s.loadRecord(c)
	if !ok {
		return
	}
	respond(c, gin.H{"record": record})
}

// CreateRecord stores the record and charges it right away.
func (s *Server) CreateRecord(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrCannotFindUser)
		return
	}

	var req recorddomain.CreateRecordRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	record, err := s.recordSvc.CreateThenPayRecord(c.Request.Context(), user.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"record": record})
}

func (s *Server) RetryRecord(c *gin.Context) {
	record, ok := s.loadRecord(c)
	if !ok {
		return
	}
	user, _ := s.currentUser(c)

	paid, err := s.recordSvc.RetryPayment(c.Request.Context(), user, record)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"record": paid})
}

func (s *Server) RefundRecord(c *gin.Context) {
	record, ok := s.loadRecord(c)
	if !ok {
		return
	}

	var req recorddomain.RefundRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	refunded, err := s.recordSvc.RefundRecord(c.Request.Context(), record, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"record": refunded})
}

// ListRecordDunnings shows the sweep's escalation history for one record.
func (s *Server) ListRecordDunnings(c *gin.Context) {
	record, ok := s.loadRecord(c)
	if !ok {
		return
	}

	dunnings, err := s.dunningSvc.List(c.Request.Context(), record.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"record": record, "dunnings": dunnings})
}

func (s *Server) loadRecord(c *gin.Context) (recorddomain.Record, bool) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return recorddomain.Record{}, false
	}

	recordID, err := pathID(c, "recordId", recorddomain.ErrNotFound)
	if err != nil {
		AbortWithError(c, err)
		return recorddomain.Record{}, false
	}

	record, err := s.recordSvc.GetRecord(c.Request.Context(), recordID, user.UserID)
	if err != nil {
		AbortWithError(c, err)
		return recorddomain.Record{}, false
	}
	return record, true
}
