package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	gatewaydomain "github.com/smallbiznis/ridepay/internal/gateway/domain"
	paymentkeydomain "github.com/smallbiznis/ridepay/internal/paymentkey/domain"
)

type directInvokeRequest struct {
	BillingKey   string `json:"billingKey" binding:"required"`
	Amount       int64  `json:"amount" binding:"required"`
	Realname     string `json:"realname"`
	Phone        string `json:"phone"`
	PaymentKeyID string `json:"paymentKeyId" binding:"required"`
	ProductName  string `json:"productName"`
}

// DirectGenerate exchanges raw card details for a billing key under the
// primary merchant without storing a card.
func (s *Server) DirectGenerate(c *gin.Context) {
	token, ok := s.generateToken(c)
	if !ok {
		return
	}
	respond(c, gin.H{"billingKey": token.Token, "cardName": token.CardLabel})
}

// LegacyGenerate is DirectGenerate with the older nested response shape.
func (s *Server) LegacyGenerate(c *gin.Context) {
	token, ok := s.generateToken(c)
	if !ok {
		return
	}
	respond(c, gin.H{"billingKey": token})
}

// DirectInvoke charges a billing key against the named sub-merchant.
func (s *Server) DirectInvoke(c *gin.Context) {
	var req directInvokeRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	keyID, err := snowflake.ParseString(req.PaymentKeyID)
	if err != nil || keyID <= 0 {
		AbortWithError(c, paymentkeydomain.ErrNotFound)
		return
	}

	tid, err := s.gatewaySvc.Charge(c.Request.Context(), gatewaydomain.ChargeRequest{
		Token:       req.BillingKey,
		Amount:      req.Amount,
		PayerName:   req.Realname,
		PayerPhone:  req.Phone,
		ProductName: req.ProductName,
	}, &keyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"tid": tid})
}

func (s *Server) generateToken(c *gin.Context) (gatewaydomain.BillingToken, bool) {
	var req gatewaydomain.CardDetails
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return gatewaydomain.BillingToken{}, false
	}

	token, err := s.gatewaySvc.CreateBillingToken(c.Request.Context(), req, nil)
	if err != nil {
		AbortWithError(c, err)
		return gatewaydomain.BillingToken{}, false
	}
	return token, true
}
