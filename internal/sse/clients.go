// Package sse provides Server-Sent Events client management for real-time communication.
package sse

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/debemdeboas/resumark/internal/config"
	"github.com/rs/zerolog"
)

const clientBuffer = 16

// KeepAlive is how often an idle stream receives a comment line.
var KeepAlive = 30 * time.Second

type Message struct {
	Event string
	Data  string
}

// Write encodes the message in the text/event-stream format.
func (m Message) Write(w io.Writer) error {
	var b strings.Builder
	if m.Event != "" {
		fmt.Fprintf(&b, "event: %s\n", m.Event)
	}
	for _, line := range strings.Split(m.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

type Client struct {
	Msg   chan Message
	Topic string
}

func NewClient(topic string) *Client {
	return &Client{
		Msg:   make(chan Message, clientBuffer),
		Topic: topic,
	}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[client] {
		delete(s.clients, client)
		close(client.Msg)
	}
}

// Broadcast sends msg to every client subscribed to topic. Slow clients
// whose buffer is full miss the message.
func (s *SSEClients) Broadcast(topic string, msg Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.Topic == topic {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}

func (s *SSEClients) Count(topic string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for client := range s.clients {
		if client.Topic == topic {
			n++
		}
	}
	return n
}

// Stream subscribes the request to topic and writes messages until the
// client goes away. initial messages are written right after the
// connection is established.
func (s *SSEClients) Stream(w http.ResponseWriter, r *http.Request, topic string, initial ...Message) {
	log := zerolog.Ctx(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeSSE)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	client := NewClient(topic)
	s.Add(client)
	defer func() {
		s.Delete(client)
		log.Debug().Str("topic", topic).Msg("SSE client disconnected")
	}()

	log.Debug().Str("topic", topic).Int("subscribers", s.Count(topic)).Msg("New SSE client connected")

	connected := Message{Event: "connected", Data: "SSE connection established"}
	for _, msg := range append([]Message{connected}, initial...) {
		if err := msg.Write(w); err != nil {
			return
		}
	}
	flusher.Flush()

	ticker := time.NewTicker(KeepAlive)
	defer ticker.Stop()

	done := r.Context().Done()
	for {
		select {
		case msg, ok := <-client.Msg:
			if !ok {
				return
			}
			if err := msg.Write(w); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-done:
			return
		}
	}
}
