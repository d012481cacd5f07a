// Package embed turns completion messages from embedded third-party games into results.
package embed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sparklab/internal/domain"
)

// DefaultOrigin is the only origin games are accepted from unless configured otherwise.
const DefaultOrigin = "https://wordwall.net"

// NonceParam is the query parameter that carries a frame's nonce into the embedded page.
const NonceParam = "sparklabNonce"

var (
	ErrOriginNotAllowed = errors.New("origin not allowed")
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownFrame     = errors.New("unknown frame")
	ErrNotCompletion    = errors.New("not a completion message")
)

var (
	scorePattern = regexp.MustCompile(`^\s*(\d+)\s*/\s*(\d+)\s*$`)
	timePattern  = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*s\s*$`)
)

// Message is a browser postMessage event relayed by the embedding page.
type Message struct {
	Origin string          `json:"origin"`
	Nonce  string          `json:"nonce,omitempty"`
	Data   json.RawMessage `json:"data"`
}

type frame struct {
	url       string
	title     string
	startedAt time.Time
}

// Bridge correlates game messages with the frames that were tracked for them.
type Bridge struct {
	origin   string
	now      func() time.Time
	newNonce func() string

	mu     sync.Mutex
	frames map[string]frame
}

// NewBridge accepts messages from origin only. An empty origin means DefaultOrigin.
func NewBridge(origin string) *Bridge {
	if origin == "" {
		origin = DefaultOrigin
	}
	return &Bridge{
		origin:   origin,
		now:      time.Now,
		newNonce: uuid.NewString,
		frames:   make(map[string]frame),
	}
}

// NewBridgeWithClock is used by tests that need deterministic elapsed times.
func NewBridgeWithClock(origin string, now func() time.Time) *Bridge {
	b := NewBridge(origin)
	b.now = now
	return b
}

// Track registers an iframe and returns its nonce and the src to load it with.
func (b *Bridge) Track(rawURL, title string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: embed url %q", domain.ErrInvalidInput, rawURL)
	}
	nonce := b.newNonce()
	q := u.Query()
	q.Set(NonceParam, nonce)
	u.RawQuery = q.Encode()

	b.mu.Lock()
	b.frames[nonce] = frame{url: rawURL, title: title, startedAt: b.now()}
	b.mu.Unlock()
	return nonce, u.String(), nil
}

// Untrack forgets a frame. Unknown nonces are ignored.
func (b *Bridge) Untrack(nonce string) {
	b.mu.Lock()
	delete(b.frames, nonce)
	b.mu.Unlock()
}

// Tracked reports how many frames are currently registered.
func (b *Bridge) Tracked() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Handle validates a message and builds the result it describes.
func (b *Bridge) Handle(msg Message) (domain.EmbeddedGameResult, error) {
	if msg.Origin != b.origin {
		return domain.EmbeddedGameResult{}, fmt.Errorf("%w: %q", ErrOriginNotAllowed, msg.Origin)
	}
	data, err := decodeData(msg.Data)
	if err != nil {
		return domain.EmbeddedGameResult{}, err
	}

	nonce := msg.Nonce
	if nonce == "" {
		nonce = firstString(data, "nonce", NonceParam)
	}
	b.mu.Lock()
	f, ok := b.frames[nonce]
	b.mu.Unlock()
	if !ok {
		return domain.EmbeddedGameResult{}, fmt.Errorf("%w: %q", ErrUnknownFrame, nonce)
	}

	status, _ := data["status"].(string)
	text, _ := data["text"].(string)
	if status != "complete" && text != "GAME COMPLETE" {
		return domain.EmbeddedGameResult{}, ErrNotCompletion
	}

	now := b.now()
	res := domain.EmbeddedGameResult{
		Nonce:     nonce,
		URL:       f.url,
		Title:     f.title,
		Timestamp: now,
		Completed: true,
	}
	res.Score, res.Total = ParseScore(data["score"])
	if ms, ok := ParseTime(data["time"]); ok {
		res.TimeSpentMs = &ms
	} else {
		elapsed := now.Sub(f.startedAt).Milliseconds()
		res.TimeSpentMs = &elapsed
	}
	if n, ok := toInt(data["attempts"]); ok {
		res.Attempts = &n
	}
	return res, nil
}

// ParseScore reads "N / M" strings or plain numbers. Anything else yields nil.
func ParseScore(v any) (score, total *int) {
	switch s := v.(type) {
	case string:
		m := scorePattern.FindStringSubmatch(s)
		if m == nil {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				return &n, nil
			}
			return nil, nil
		}
		n, _ := strconv.Atoi(m[1])
		t, _ := strconv.Atoi(m[2])
		return &n, &t
	case float64:
		n := int(s)
		return &n, nil
	}
	return nil, nil
}

// ParseTime reads "27.7s" style durations into milliseconds.
func ParseTime(v any) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return int64(secs*1000 + 0.5), true
}

func decodeData(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrMalformedMessage
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		raw = []byte(s)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		return nil, ErrMalformedMessage
	}
	return data, nil
}

func firstString(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := data[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
