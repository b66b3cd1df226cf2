package server

import (
	"github.com/gin-gonic/gin"
	coupondomain "github.com/smallbiznis/ridepay/internal/coupon/domain"
)

func (s *Server) ListCoupons(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req coupondomain.ListRequest
	if err := bindQuery(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.couponSvc.List(c.Request.Context(), user.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"coupons": resp.Coupons, "total": resp.Total})
}

func (s *Server) EnrollCoupon(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req coupondomain.EnrollRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	coupon, err := s.couponSvc.Enroll(c.Request.Context(), user.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"coupon": coupon})
}

func (s *Server) GetCoupon(c *gin.Context) {
	coupon, ok := s.loadCoupon(c)
	if !ok {
		return
	}
	respond(c, gin.H{"coupon": coupon})
}

func (s *Server) RedeemCoupon(c *gin.Context) {
	coupon, ok := s.loadCoupon(c)
	if !ok {
		return
	}

	properties, err := s.couponSvc.Redeem(c.Request.Context(), coupon)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"properties": properties})
}

func (s *Server) ModifyCoupon(c *gin.Context) {
	coupon, ok := s.loadCoupon(c)
	if !ok {
		return
	}

	var req coupondomain.ModifyRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	updated, err := s.couponSvc.Modify(c.Request.Context(), coupon, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"coupon": updated})
}

func (s *Server) DeleteCoupon(c *gin.Context) {
	coupon, ok := s.loadCoupon(c)
	if !ok {
		return
	}

	if err := s.couponSvc.Delete(c.Request.Context(), coupon); err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, nil)
}

// loadCoupon always attaches the group, which redeem needs.
func (s *Server) loadCoupon(c *gin.Context) (coupondomain.Coupon, bool) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return coupondomain.Coupon{}, false
	}

	couponID, err := pathID(c, "couponId", coupondomain.ErrNotFound)
	if err != nil {
		AbortWithError(c, err)
		return coupondomain.Coupon{}, false
	}

	coupon, err := s.couponSvc.Get(c.Request.Context(), user.UserID, couponID, true)
	if err != nil {
		AbortWithError(c, err)
		return coupondomain.Coupon{}, false
	}
	return coupon, true
}
