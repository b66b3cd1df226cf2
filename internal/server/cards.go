package server

import (
	"github.com/gin-gonic/gin"
	carddomain "github.com/smallbiznis/ridepay/internal/card/domain"
	gatewaydomain "github.com/smallbiznis/ridepay/internal/gateway/domain"
)

func (s *Server) ListCards(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	cards, err := s.cardSvc.List(c.Request.Context(), user.UserID, false)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"cards": cards})
}

func (s *Server) GetCard(c *gin.Context) {
	card, ok := s.loadCard(c)
	if !ok {
		return
	}
	respond(c, gin.H{"card": card})
}

func (s *Server) RegisterCard(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req gatewaydomain.CardDetails
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	card, err := s.cardSvc.Register(c.Request.Context(), user.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"card": card})
}

// ReorderCards takes a JSON array of card ids in the desired order.
func (s *Server) ReorderCards(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var cardIDs []string
	if err := bindJSON(c, &cardIDs); err != nil {
		AbortWithError(c, err)
		return
	}

	cards, err := s.cardSvc.Reorder(c.Request.Context(), user.UserID, cardIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"cards": cards})
}

// RevokeCard refuses while the user would be left unable to pay.
func (s *Server) RevokeCard(c *gin.Context) {
	card, ok := s.loadCard(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := s.cardSvc.CheckReady(ctx, card.UserID); err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.cardSvc.Revoke(ctx, card.UserID, card); err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, gin.H{"card": card})
}

func (s *Server) CheckReady(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrCannotFindUser)
		return
	}

	if err := s.cardSvc.CheckReady(c.Request.Context(), user.UserID); err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, nil)
}

func (s *Server) loadCard(c *gin.Context) (carddomain.Card, bool) {
	user, ok := s.currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return carddomain.Card{}, false
	}

	cardID, err := pathID(c, "cardId", carddomain.ErrNotFound)
	if err != nil {
		AbortWithError(c, err)
		return carddomain.Card{}, false
	}

	card, err := s.cardSvc.Get(c.Request.Context(), user.UserID, cardID, false)
	if err != nil {
		AbortWithError(c, err)
		return carddomain.Card{}, false
	}
	return card, true
}
