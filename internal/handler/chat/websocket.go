package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/digi-assistant/digi/backend/internal/service/ai"
	chatService "github.com/digi-assistant/digi/backend/internal/service/chat"
	"github.com/digi-assistant/digi/backend/internal/service/upload"
)

const defaultReadTimeout = 60 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage is the payload of an inbound "text" frame.
type TextMessage struct {
	Message string `json:"message"`
}

// ImageMessage is the payload of an inbound "image" frame.
type ImageMessage struct {
	Message   string `json:"message"`
	Image     string `json:"image"`     // standard base64
	MediaType string `json:"mediaType"` // advisory, the bytes are sniffed
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket relays chat frames over one connection. Every inbound
// frame gets exactly one "result" or "error" frame back.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Image frames carry base64, which is 4/3 of the raw size.
	conn.SetReadLimit(h.uploads.MaxBytes()*4/3 + multipartOverhead)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	for {
		// The deadline covers idle time only; a slow provider call in
		// handleFrame must not eat into it.
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))

		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		h.handleFrame(ctx, conn, &msg)
	}
}

func (h *Handler) handleFrame(ctx context.Context, conn *websocket.Conn, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(conn, "invalid text payload")
			return
		}
		reply, err := h.chatSvc.Chat(ctx, text.Message)
		h.reply(conn, reply, err, msgTextFailed)
	case "image":
		var image ImageMessage
		if err := json.Unmarshal(msg.Data, &image); err != nil {
			h.sendError(conn, "invalid image payload")
			return
		}
		img, err := decodeImage(image, h.uploads.MaxBytes())
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		reply, err := h.chatSvc.ChatImageData(ctx, image.Message, img)
		h.reply(conn, reply, err, msgImageFailed)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func decodeImage(msg ImageMessage, maxBytes int64) (ai.Image, error) {
	if msg.Image == "" {
		return ai.Image{}, errors.New(msgImageRequired)
	}
	data, err := base64.StdEncoding.DecodeString(msg.Image)
	if err != nil {
		return ai.Image{}, errors.New("invalid image encoding")
	}
	if int64(len(data)) > maxBytes {
		return ai.Image{}, errors.New(msgImageTooLarge)
	}
	mediaType := http.DetectContentType(data)
	if !upload.Allowed(mediaType) {
		return ai.Image{}, errors.New(msgImageType)
	}
	return ai.Image{MediaType: mediaType, Data: data}, nil
}

func (h *Handler) reply(conn *websocket.Conn, reply string, err error, failure string) {
	switch {
	case err == nil:
		h.send(conn, outgoingMessage{Type: "result", Data: Response{Response: reply}})
	case errors.Is(err, chatService.ErrMessageRequired):
		h.sendError(conn, msgMessageRequired)
	case errors.Is(err, chatService.ErrImageRequired):
		h.sendError(conn, msgImageRequired)
	default:
		h.sendError(conn, failure)
	}
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, outgoingMessage{Type: "error", Data: map[string]string{"error": message}})
}

func (h *Handler) send(conn *websocket.Conn, msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn("websocket write failed", zap.Error(err))
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.readTimeout * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
