package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hoshinonyaruko/snake-classic/session"
	"github.com/hoshinonyaruko/snake-classic/structs"
)

// 消息类型，沿用单字符的紧凑协议
//
//	客户端 → 服务端:
//	  "d" 改变方向 {"t":"d","d":"up"}
//	  "s" 开始     {"t":"s"}
//	  "r" 重新开始 {"t":"r"}
//	服务端 → 客户端:
//	  "s" 状态     {"t":"s","s":{...}}
//	  "e" 错误     {"t":"e","m":"..."}
const (
	MsgDirection = "d"
	MsgStart     = "s"
	MsgRestart   = "r"
	MsgState     = "s"
	MsgError     = "e"
)

// ClientMessage is an inbound websocket message.
type ClientMessage struct {
	Type      string `json:"t"`
	Direction string `json:"d,omitempty"`
}

// ServerMessage is an outbound websocket message.
type ServerMessage struct {
	Type    string             `json:"t"`
	State   *structs.GameState `json:"s,omitempty"`
	Message string             `json:"m,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; the game has no credentials to protect
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// StreamHandler 推送每一步的状态，同时接收方向和开始/重新开始指令
func StreamHandler(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, m, c.Param("id"))
		if !ok {
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}

		updates, unsubscribe := s.Subscribe()
		outbox := make(chan ServerMessage, 8)

		// 只有这个 goroutine 写 websocket
		go writeLoop(ws, s.State(), updates, outbox)

		readLoop(ws, s, outbox)
		unsubscribe()
	}
}

func writeLoop(ws *websocket.Conn, first structs.GameState, updates <-chan structs.GameState, outbox <-chan ServerMessage) {
	defer ws.Close()

	if err := ws.WriteJSON(ServerMessage{Type: MsgState, State: &first}); err != nil {
		return
	}
	for {
		select {
		case st, ok := <-updates:
			if !ok {
				// 已退订，正常关闭
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := ws.WriteJSON(ServerMessage{Type: MsgState, State: &st}); err != nil {
				return
			}
		case msg := <-outbox:
			if err := ws.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func readLoop(ws *websocket.Conn, s *session.Session, outbox chan<- ServerMessage) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error for %s: %v", s.ID, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			reply(outbox, ServerMessage{Type: MsgError, Message: "bad message"})
			continue
		}

		switch msg.Type {
		case MsgDirection:
			d, ok := structs.ParseDirection(msg.Direction)
			if !ok {
				reply(outbox, ServerMessage{Type: MsgError, Message: "invalid direction"})
				continue
			}
			s.SetDirection(d)
		case MsgStart:
			s.Start()
		case MsgRestart:
			s.Restart()
		default:
			reply(outbox, ServerMessage{Type: MsgError, Message: "unknown message type"})
		}
	}
}

// reply 不阻塞读循环，写不过来的错误消息直接丢弃
func reply(outbox chan<- ServerMessage, msg ServerMessage) {
	select {
	case outbox <- msg:
	default:
	}
}
