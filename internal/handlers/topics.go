package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asksenior/backend/internal/service"
)

type TopicHandler struct {
	topics *service.TopicService
}

func NewTopicHandler(topics *service.TopicService) *TopicHandler {
	return &TopicHandler{topics: topics}
}

func (h *TopicHandler) GetTopics(c *gin.Context) {
	topics, err := h.topics.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(topics))
}

// GetTopicTree returns the topics nested under their parents.
func (h *TopicHandler) GetTopicTree(c *gin.Context) {
	tree, err := h.topics.Tree(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(tree))
}

func (h *TopicHandler) CreateTopic(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req service.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	topic, err := h.topics.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, topic)
}
