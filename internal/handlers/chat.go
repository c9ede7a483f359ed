package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/platform/openai"
	"github.com/littl3hero/studentio-backend/internal/types"
)

const chatDemoText = "Demo stream: no OpenAI key is configured, so this is a canned reply."

// ChatHandler streams chat completions as server-sent events. A nil client
// serves a demo stream so the frontend works without a key.
type ChatHandler struct {
	log *logger.Logger
	llm openai.Client
}

func NewChatHandler(log *logger.Logger, llm openai.Client) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), llm: llm}
}

type chatStreamRequest struct {
	Messages []types.ChatMessage `json:"messages"`
}

// POST /v1/chat/stream
// Emits `data: {"delta": "..."}` events and a final `data: [DONE]`.
// Generation stops at the next delta once the client disconnects.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req chatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()
	writeDelta := func(delta string) {
		payload, err := json.Marshal(gin.H{"delta": delta})
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		flusher.Flush()
	}

	if h.llm == nil {
		for _, r := range chatDemoText {
			select {
			case <-ctx.Done():
				return
			default:
			}
			writeDelta(string(r))
			time.Sleep(20 * time.Millisecond)
		}
		fmt.Fprint(c.Writer, "data: [DONE]\n\n")
		flusher.Flush()
		return
	}

	messages := make([]openai.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.Message{Role: m.Role, Content: m.Content})
	}

	if _, err := h.llm.StreamChat(ctx, messages, writeDelta); err != nil {
		// Disconnects land here too; the [DONE] sentinel is still written
		// so a live client always sees a terminated stream.
		h.log.Debug("Chat stream ended with error", "error", err)
	}
	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	flusher.Flush()
}
