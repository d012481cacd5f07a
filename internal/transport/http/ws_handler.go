package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"sparklab/internal/app"
	"sparklab/internal/auth"
	"sparklab/internal/domain"
	"sparklab/internal/embed"
	"sparklab/internal/logger"
)

const wsWriteTimeout = 10 * time.Second

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type trackPayload struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type trackedPayload struct {
	Nonce string `json:"nonce"`
	Src   string `json:"src"`
}

type untrackPayload struct {
	Nonce string `json:"nonce"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// outbox hands frames to the connection's writer goroutine.
type outbox struct {
	send chan outboundMessage[any]
	done chan struct{}
}

func newOutbox(size int) *outbox {
	return &outbox{send: make(chan outboundMessage[any], size), done: make(chan struct{})}
}

// push returns false once the writer has stopped.
func (o *outbox) push(msg outboundMessage[any]) bool {
	select {
	case o.send <- msg:
		return true
	case <-o.done:
		return false
	}
}

// run writes frames until send is closed or a write fails. A failed write closes conn so
// the reader unblocks too.
func (o *outbox) run(conn *websocket.Conn, timeout time.Duration, log *logger.Logger) {
	defer close(o.done)
	for msg := range o.send {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug("ws write error", "error", err)
			_ = conn.Close()
			return
		}
	}
}

// EmbedWSHandler relays postMessage events from embedded games on an activity page.
type EmbedWSHandler struct {
	activities *app.ActivityService
	origin     string
	log        *logger.Logger
	upgrader   websocket.Upgrader
}

func NewEmbedWSHandler(activities *app.ActivityService, origin string, log *logger.Logger) *EmbedWSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &EmbedWSHandler{
		activities: activities,
		origin:     origin,
		log:        log.With("component", "embed_ws"),
		upgrader:   newUpgrader(),
	}
}

// ServeWS upgrades the request and runs one Bridge for the lifetime of the connection.
// The origin of a relayed message is the one the page reports from its MessageEvent.
func (h *EmbedWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	activityID := r.URL.Query().Get("activityId")
	userID := r.URL.Query().Get("userId")
	if activityID == "" || userID == "" {
		http.Error(w, "missing activityId or userId", http.StatusBadRequest)
		return
	}
	if _, err := h.activities.Activity(r.Context(), activityID); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	bridge := embed.NewBridge(h.origin)
	log := h.log.With("activityId", activityID, "userId", userID)

	out := newOutbox(16)
	go out.run(conn, wsWriteTimeout, log)

	nonces := make(map[string]struct{})
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		reply, ok := h.relay(r, bridge, nonces, activityID, userID, inbound, log)
		if ok && !out.push(reply) {
			break
		}
	}

	for nonce := range nonces {
		bridge.Untrack(nonce)
	}
	close(out.send)
	<-out.done
}

// relay applies one inbound frame to the bridge. ok is false when there is nothing to reply.
func (h *EmbedWSHandler) relay(r *http.Request, bridge *embed.Bridge, nonces map[string]struct{}, activityID, userID string, inbound inboundMessage, log *logger.Logger) (reply outboundMessage[any], ok bool) {
	switch inbound.Type {
	case "track":
		var p trackPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return errorMessage(errors.New("invalid track payload")), true
		}
		nonce, src, err := bridge.Track(p.URL, p.Title)
		if err != nil {
			return errorMessage(err), true
		}
		nonces[nonce] = struct{}{}
		return outboundMessage[any]{Type: "tracked", Payload: trackedPayload{Nonce: nonce, Src: src}}, true
	case "untrack":
		var p untrackPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return errorMessage(errors.New("invalid untrack payload")), true
		}
		bridge.Untrack(p.Nonce)
		delete(nonces, p.Nonce)
		return outboundMessage[any]{}, false
	case "message":
		var msg embed.Message
		if err := json.Unmarshal(inbound.Payload, &msg); err != nil {
			return errorMessage(errors.New("invalid message payload")), true
		}
		result, err := bridge.Handle(msg)
		if err != nil {
			log.Debug("embed message dropped", "origin", msg.Origin, "error", err)
			return errorMessage(err), true
		}
		if _, err := h.activities.RecordEmbedResult(r.Context(), activityID, userID, result); err != nil {
			log.Warn("storing embed result failed", "error", err)
			return errorMessage(err), true
		}
		return outboundMessage[any]{Type: "result", Payload: result}, true
	default:
		return errorMessage(errors.New("unsupported message type")), true
	}
}

// ResultsWSHandler streams newly saved quiz results to teacher dashboards.
type ResultsWSHandler struct {
	quizzes  *app.QuizService
	auth     Authenticator
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewResultsWSHandler(quizzes *app.QuizService, a Authenticator, log *logger.Logger) *ResultsWSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ResultsWSHandler{
		quizzes:  quizzes,
		auth:     a,
		log:      log.With("component", "results_ws"),
		upgrader: newUpgrader(),
	}
}

// ServeWS authenticates with ?token= since browsers cannot set headers on websocket requests.
func (h *ResultsWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if raw, ok := auth.BearerToken(r.Header.Get("Authorization")); ok {
		token = raw
	}
	claims, err := h.auth.Authenticate(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if claims.Role != domain.RoleTeacher {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.quizzes.Subscribe(r.Context())
	defer cancel()

	closeSignals := make(chan struct{})
	readerDone := make(chan struct{})
	// the reader only detects the client going away
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(closeSignals)
				return
			}
		}
	}()

	for {
		select {
		case result, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(outboundMessage[domain.QuizResult]{Type: "result", Payload: result}); err != nil {
				h.log.Debug("ws write error", "error", err)
				return
			}
		case <-closeSignals:
			<-readerDone
			return
		}
	}
}
