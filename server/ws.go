package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/pkg/events"
	"github.com/xhad/skim/pkg/summarizer"
	"go.uber.org/zap"
)

const (
	MessageSummarize    = "summarize"
	MessageSummarizePDF = "summarize_pdf"
	MessageAsk          = "ask"

	MessageStatus   = "status"
	MessageStream   = "stream"
	MessageResponse = "response"
	MessageError    = "error"
)

// Message is what the server writes to websocket clients.
type Message struct {
	Type      string      `json:"type"`
	Content   string      `json:"content"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// wsRequest is what clients send. File is base64 in JSON.
type wsRequest struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	URL       string `json:"url,omitempty"`
	Style     string `json:"style,omitempty"`
	Annotate  bool   `json:"annotate,omitempty"`
	Filename  string `json:"filename,omitempty"`
	File      []byte `json:"file,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

func (s *Server) newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.allowedOrigin(origin) != ""
		},
	}
}

type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	logger *zap.Logger
}

func (c *wsConn) send(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Debug("failed to send message", zap.String("type", msg.Type), zap.Error(err))
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	upgrader := s.newUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Room for a base64 upload plus the JSON envelope.
	conn.SetReadLimit(s.config.MaxUploadBytes*4/3 + 4096)

	// In-flight requests are cancelled, then awaited, before the conn closes.
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := &wsConn{conn: conn, logger: s.logger}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			ws.send(Message{Type: MessageError, Content: "Error: invalid message"})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, ws, req)
		}()
	}
}

func (s *Server) handleMessage(ctx context.Context, ws *wsConn, req wsRequest) {
	requestID := uuid.NewString()
	ctx = events.WithRequestID(ctx, requestID)

	switch req.Type {
	case MessageAsk:
		s.handleAsk(ctx, ws, requestID, req)
	case MessageSummarizePDF:
		s.handleSummarize(ctx, ws, requestID, req, true)
	case MessageSummarize:
		s.handleSummarize(ctx, ws, requestID, req, false)
	case "":
		// Bare messages carry a URL somewhere in their text.
		req.Content = urlPattern.FindString(req.Content)
		s.handleSummarize(ctx, ws, requestID, req, false)
	default:
		ws.send(Message{Type: MessageError, RequestID: requestID, Content: "Error: unknown message type " + req.Type})
	}
}

// forwardProgress relays this request's pipeline events as status messages
// until the returned stop func is called. stop waits for the relay to drain.
func (s *Server) forwardProgress(ctx context.Context, ws *wsConn, requestID string) (stop func()) {
	if s.config.Events == nil {
		return func() {}
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch := s.config.Events.Subscribe(subCtx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for ev := range ch {
			if ev.Payload.RequestID != requestID {
				continue
			}
			ws.send(Message{
				Type:      MessageStatus,
				RequestID: requestID,
				Content:   ev.Payload.Stage,
				Data:      ev.Payload,
			})
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (s *Server) handleSummarize(ctx context.Context, ws *wsConn, requestID string, req wsRequest, pdf bool) {
	if s.config.Summarizer == nil {
		ws.send(Message{Type: MessageError, RequestID: requestID, Content: messageFor(errUnavailable)})
		return
	}

	style, err := s.parseStyle(req.Style)
	if err != nil {
		ws.send(Message{Type: MessageError, RequestID: requestID, Content: messageFor(err)})
		return
	}

	stop := s.forwardProgress(ctx, ws, requestID)
	opts := summarizer.Options{
		Style:    style,
		Annotate: req.Annotate,
		OnChunk: func(chunk string) error {
			ws.send(Message{Type: MessageStream, RequestID: requestID, Content: chunk})
			return nil
		},
	}

	var summary *models.Summary
	switch {
	case pdf && len(req.File) == 0:
		summary, err = s.config.Summarizer.SummarizePDF(ctx, nil, req.Filename, opts)
	case pdf && int64(len(req.File)) > s.config.MaxUploadBytes:
		err = errUploadTooLarge
	case pdf:
		summary, err = s.config.Summarizer.SummarizePDF(ctx, bytes.NewReader(req.File), req.Filename, opts)
	default:
		target := req.URL
		if target == "" {
			target = req.Content
		}
		summary, err = s.config.Summarizer.SummarizeURL(ctx, target, opts)
	}
	stop()

	if err != nil {
		s.logger.Debug("websocket summarize failed", zap.String("request_id", requestID), zap.Error(err))
		ws.send(Message{Type: MessageError, RequestID: requestID, Content: messageFor(err)})
		return
	}
	ws.send(Message{Type: MessageResponse, RequestID: requestID, Content: summary.Text, Data: summary})
}

func (s *Server) handleAsk(ctx context.Context, ws *wsConn, requestID string, req wsRequest) {
	if s.config.QA == nil {
		ws.send(Message{Type: MessageError, RequestID: requestID, Content: messageFor(errUnavailable)})
		return
	}

	answer, err := s.config.QA.Ask(ctx, req.SessionID, req.Content, func(chunk string) error {
		ws.send(Message{Type: MessageStream, RequestID: requestID, Content: chunk})
		return nil
	})
	if err != nil {
		ws.send(Message{Type: MessageError, RequestID: requestID, Content: messageFor(err)})
		return
	}
	ws.send(Message{Type: MessageResponse, RequestID: requestID, Content: answer.Text, Data: answer})
}
