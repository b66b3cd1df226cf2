package server

import (
	"github.com/gin-gonic/gin"
	webhookdomain "github.com/smallbiznis/ridepay/internal/webhook/domain"
)

func (s *Server) OnPaymentWebhook(c *gin.Context) {
	var event webhookdomain.PaymentEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		AbortWithError(c, webhookdomain.ErrInvalidPayload)
		return
	}

	result, err := s.webhookSvc.OnPayment(c.Request.Context(), event)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"record": result.Record, "duplicate": result.Duplicate})
}

func (s *Server) OnRefundWebhook(c *gin.Context) {
	var event webhookdomain.RefundEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		AbortWithError(c, webhookdomain.ErrInvalidPayload)
		return
	}

	result, err := s.webhookSvc.OnRefund(c.Request.Context(), event)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"record": result.Record})
}
