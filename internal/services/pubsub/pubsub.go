// Package pubsub fans engine events out to WebSocket clients and other listeners.
package pubsub

import (
	"strconv"
	"sync"
	"time"
)

// Topic represents a subscription topic.
type Topic string

const (
	TopicControlDispatched Topic = "CONTROL_DISPATCHED"
	TopicBindingsChanged   Topic = "BINDINGS_CHANGED"
	TopicLearnStatus       Topic = "LEARN_STATUS"
	TopicSelection         Topic = "SELECTION_CHANGED"
	TopicAutopilot         Topic = "AUTOPILOT_UPDATED"
	TopicCatalog           Topic = "CATALOG_UPDATED"
)

// AllTopics lists every topic the engine publishes.
func AllTopics() []Topic {
	return []Topic{
		TopicControlDispatched,
		TopicBindingsChanged,
		TopicLearnStatus,
		TopicSelection,
		TopicAutopilot,
		TopicCatalog,
	}
}

// Event is the envelope delivered to subscribers.
type Event struct {
	Topic     Topic       `json:"topic"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Subscriber represents a subscription channel.
type Subscriber struct {
	ID      string
	Topics  []Topic
	Filter  string // Optional filter value (e.g., control id)
	Channel chan Event
}

// PubSub manages subscriptions and message distribution.
type PubSub struct {
	mu          sync.RWMutex
	subscribers map[Topic][]*Subscriber
	nextID      int
}

// New creates a new PubSub instance.
func New() *PubSub {
	return &PubSub{
		subscribers: make(map[Topic][]*Subscriber),
	}
}

// Subscribe creates a subscription for a single topic.
func (ps *PubSub) Subscribe(topic Topic, filter string, bufferSize int) *Subscriber {
	return ps.SubscribeTopics([]Topic{topic}, filter, bufferSize)
}

// SubscribeTopics creates one subscription receiving events from several topics.
func (ps *PubSub) SubscribeTopics(topics []Topic, filter string, bufferSize int) *Subscriber {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.nextID++
	sub := &Subscriber{
		ID:      strconv.Itoa(ps.nextID),
		Topics:  append([]Topic(nil), topics...),
		Filter:  filter,
		Channel: make(chan Event, bufferSize),
	}

	for _, t := range topics {
		ps.subscribers[t] = append(ps.subscribers[t], sub)
	}
	return sub
}

// Unsubscribe removes a subscription from all its topics and closes its channel.
func (ps *PubSub) Unsubscribe(sub *Subscriber) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	found := false
	for _, t := range sub.Topics {
		subs := ps.subscribers[t]
		for i, s := range subs {
			if s.ID == sub.ID {
				ps.subscribers[t] = append(subs[:i:i], subs[i+1:]...)
				found = true
				break
			}
		}
	}
	if found {
		close(sub.Channel)
	}
}

// Publish sends a message to all subscribers of a topic.
// If filter is non-empty, only sends to subscribers with matching filter or empty filter.
func (ps *PubSub) Publish(topic Topic, filter string, data interface{}) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	ev := Event{Topic: topic, Timestamp: time.Now(), Data: data}
	for _, sub := range ps.subscribers[topic] {
		if sub.Filter == "" || filter == "" || sub.Filter == filter {
			select {
			case sub.Channel <- ev:
			default:
				// Channel full, skip (non-blocking)
			}
		}
	}
}

// PublishAll sends a message to all subscribers of a topic regardless of filter.
func (ps *PubSub) PublishAll(topic Topic, data interface{}) {
	ps.Publish(topic, "", data)
}

// SubscriberCount returns the number of subscribers for a topic.
func (ps *PubSub) SubscriberCount(topic Topic) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}
