package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hopalong/core/internal/models"
)

// channelPrefix namespaces ride chat channels on the broker.
const channelPrefix = "chat:ride:"

const defaultHistoryLimit = 50

type chatRequest struct {
	RideID  string `json:"rideId" binding:"required"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	Content string `json:"content"`
}

// handleChatSubscribe issues a broker token scoped to the ride's channel.
// Only the owner and merged members may subscribe.
func (s *Server) handleChatSubscribe(c *gin.Context) {
	req, rec, ok := s.bindChat(c)
	if !ok {
		return
	}

	channel := channelPrefix + rec.ID
	token, err := s.tokens.IssueChannel(s.accountID(c), channel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}
	if err := s.store.MarkChannelActive(req.RideID); err != nil {
		s.log.Warn("failed to mark channel active", "ride_id", req.RideID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "channel": channel})
}

// handleChatPrevious returns a bounded history window, oldest first.
func (s *Server) handleChatPrevious(c *gin.Context) {
	req, rec, ok := s.bindChat(c)
	if !ok {
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	history, err := s.store.PreviousMessages(rec.ID, limit, req.Offset)
	if err != nil {
		s.log.Error("history query failed", "ride_id", rec.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	messages := make([]models.ChatMessage, 0, len(history))
	for i := range history {
		messages = append(messages, s.historyToMessage(&history[i]))
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// handleChatSend persists a message and broadcasts it on the ride's
// channel. The response never echoes the message; subscribers receive it
// through the live publication.
func (s *Server) handleChatSend(c *gin.Context) {
	req, rec, ok := s.bindChat(c)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "message content is empty"})
		return
	}

	record := &models.ChatHistory{
		RideID:    rec.ID,
		SenderID:  s.accountID(c),
		MessageID: uuid.New().String(),
		Content:   req.Content,
		SentAt:    time.Now().UTC(),
	}
	if err := s.store.SaveMessage(record); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}

	if err := s.hub.Broadcast(channelPrefix+rec.ID, s.historyToMessage(record)); err != nil {
		s.log.Error("broadcast failed", "ride_id", rec.ID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// bindChat parses the request, loads the ride and checks the caller is a
// participant.
func (s *Server) bindChat(c *gin.Context) (chatRequest, *models.RideRecord, bool) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "rideId is required"})
		return req, nil, false
	}

	rec, err := s.store.RideByID(req.RideID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "ride not found"})
		return req, nil, false
	}

	accountID := s.accountID(c)
	if rec.OwnerID != accountID && !containsID(rec.MemberIDs, accountID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "not a ride participant"})
		return req, nil, false
	}
	return req, rec, true
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *Server) historyToMessage(h *models.ChatHistory) models.ChatMessage {
	msg := models.ChatMessage{
		ID:       h.MessageID,
		Content:  h.Content,
		SenderID: h.SenderID,
		RideID:   h.RideID,
		SentAt:   h.SentAt,
		Sender:   models.ChatSender{ID: h.SenderID},
	}
	if account, err := s.store.AccountByID(h.SenderID); err == nil && account != nil {
		msg.Sender.FirstName = account.FirstName
		msg.Sender.LastName = account.LastName
		msg.Sender.ProfilePic = account.ProfilePic
	}
	return msg
}
