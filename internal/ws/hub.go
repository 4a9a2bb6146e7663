package ws

import (
	"encoding/json"
	"log"
)

// Hub owns the set of subscribed dashboard clients and fans snapshots out
// to them. Registration, removal and broadcast all go through the run
// loop, so no client list is shared across goroutines.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			h.drop(client)
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// A client that cannot keep up is dropped rather
					// than stalling delivery to the others.
					h.drop(client)
				}
			}
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Broadcast queues a payload for delivery to every subscribed client. It
// never blocks the caller; when the hub is saturated the update is
// dropped, since the next mutation will push a fresh snapshot anyway.
func (h *Hub) Broadcast(payload any) {
	message, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal broadcast payload: %v", err)
		return
	}
	select {
	case h.broadcast <- message:
	default:
		log.Printf("broadcast queue full, dropping update")
	}
}

// Close shuts the hub down and disconnects every client.
func (h *Hub) Close() {
	close(h.done)
}
