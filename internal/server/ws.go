package server

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/franckalain/caloriesense/internal/models"
)

// wsMessage is the envelope of every websocket frame sent by a client
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// wsReply is the envelope of every frame sent back. Results carry Data,
// failures carry Message.
type wsReply struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type wsImage struct {
	Image       string `json:"image"` // base64, optionally as a data URI
	ContentType string `json:"content_type"`
}

type wsMeals struct {
	Meals []models.MealEntry `json:"meals"`
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// base64 inflates uploads by a third
	conn.SetReadLimit(s.cfg.MaxUploadSize*4/3 + 4096)

	// Store client connection
	clientID := uuid.New().String()
	s.clients.Store(clientID, conn)
	defer s.clients.Delete(clientID)

	log := s.log.With(zap.String("client_id", clientID))
	log.Info("websocket client connected")

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("error reading message", zap.Error(err))
			}
			break
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Warn("error parsing message", zap.Error(err))
			s.sendError(conn, "Invalid message format")
			continue
		}

		s.handleWebSocketMessage(c, conn, log, msg)
	}
	log.Info("websocket client disconnected")
}

func (s *Server) handleWebSocketMessage(c *gin.Context, conn *websocket.Conn, log *zap.Logger, msg wsMessage) {
	ctx := c.Request.Context()

	switch msg.Type {
	case "analyze_image":
		var data wsImage
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Image == "" {
			s.sendError(conn, "Invalid image data")
			return
		}
		imageData, contentType, err := decodeImagePayload(data)
		if err != nil {
			log.Warn("error decoding image", zap.Error(err))
			s.sendError(conn, "Invalid image format")
			return
		}
		est, err := s.svc.AnalyzeImage(ctx, models.UploadedImage{Data: imageData, ContentType: contentType})
		if err != nil {
			log.Error("error processing image", zap.Error(err))
			s.sendError(conn, err.Error())
			return
		}
		s.sendMessage(conn, log, "analysis_result", est)

	case "get_insight":
		var goal models.MacroGoal
		if err := json.Unmarshal(msg.Data, &goal); err != nil {
			s.sendError(conn, "Invalid insight request")
			return
		}
		s.sendMessage(conn, log, "insight", s.svc.GetInsight(ctx, goal))

	case "process_analytics":
		var data wsMeals
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.sendError(conn, "Invalid meal history")
			return
		}
		result, err := s.svc.ProcessAnalytics(ctx, data.Meals)
		if err != nil {
			log.Error("error processing analytics", zap.Error(err))
			s.sendError(conn, err.Error())
			return
		}
		s.sendMessage(conn, log, "analytics", result)

	case "analyze_food":
		var req foodRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			s.sendError(conn, "Invalid food request")
			return
		}
		est, err := s.svc.LookupFood(ctx, req.FoodName)
		if err != nil {
			log.Warn("error looking up food", zap.Error(err))
			s.sendError(conn, err.Error())
			return
		}
		s.sendMessage(conn, log, "food_result", est)

	default:
		s.sendError(conn, "Unknown message type")
	}
}

// decodeImagePayload accepts plain base64 or a data URI. The content type of
// a data URI is used when none was sent explicitly.
func decodeImagePayload(data wsImage) ([]byte, string, error) {
	payload := data.Image
	contentType := data.ContentType

	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		meta, encoded, found := strings.Cut(rest, ",")
		if found {
			payload = encoded
			if contentType == "" {
				contentType, _, _ = strings.Cut(meta, ";")
			}
		}
	}

	imageData, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", err
	}
	return imageData, contentType, nil
}

func (s *Server) sendMessage(conn *websocket.Conn, log *zap.Logger, messageType string, data any) {
	if err := conn.WriteJSON(wsReply{Type: messageType, Data: data}); err != nil {
		log.Warn("error sending message", zap.String("type", messageType), zap.Error(err))
		return
	}
	log.Debug("message sent", zap.String("type", messageType))
}

func (s *Server) sendError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(wsReply{Type: "error", Message: message}); err != nil {
		s.log.Warn("error sending error message", zap.Error(err))
	}
}

// closeClients closes every open websocket connection
func (s *Server) closeClients() {
	s.clients.Range(func(key, value any) bool {
		if conn, ok := value.(*websocket.Conn); ok {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}
		return true
	})
}

// ConnectedClients is the number of open websocket connections
func (s *Server) ConnectedClients() int {
	n := 0
	s.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
