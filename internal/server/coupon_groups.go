package server

import (
	"github.com/gin-gonic/gin"
	coupongroupdomain "github.com/smallbiznis/ridepay/internal/coupongroup/domain"
)

func (s *Server) ListCouponGroups(c *gin.Context) {
	var req coupongroupdomain.ListRequest
	if err := bindQuery(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.groupSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"couponGroups": resp.CouponGroups, "total": resp.Total})
}

func (s *Server) CreateCouponGroup(c *gin.Context) {
	var req coupongroupdomain.CreateRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	group, err := s.groupSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"couponGroup": group})
}

func (s *Server) GetCouponGroup(c *gin.Context) {
	group, ok := s.loadCouponGroup(c)
	if !ok {
		return
	}
	respond(c, gin.H{"couponGroup": group})
}

func (s *Server) ModifyCouponGroup(c *gin.Context) {
	group, ok := s.loadCouponGroup(c)
	if !ok {
		return
	}

	var req coupongroupdomain.ModifyRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	updated, err := s.groupSvc.Modify(c.Request.Context(), group, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"couponGroup": updated})
}

func (s *Server) DeleteCouponGroup(c *gin.Context) {
	group, ok := s.loadCouponGroup(c)
	if !ok {
		return
	}

	if err := s.groupSvc.Delete(c.Request.Context(), group); err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, nil)
}

func (s *Server) loadCouponGroup(c *gin.Context) (coupongroupdomain.CouponGroup, bool) {
	groupID, err := pathID(c, "couponGroupId", coupongroupdomain.ErrNotFound)
	if err != nil {
		AbortWithError(c, err)
		return coupongroupdomain.CouponGroup{}, false
	}

	group, err := s.groupSvc.Get(c.Request.Context(), groupID)
	if err != nil {
		AbortWithError(c, err)
		return coupongroupdomain.CouponGroup{}, false
	}
	return group, true
}
