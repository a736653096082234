package service

import (
	"context"
	"log"
	"time"

	"deck-builder-be/internal/websocket"
	wfevents "deck-builder-be/pkg/deck/events"
	"deck-builder-be/pkg/deck/trace"
	busevents "deck-builder-be/pkg/events"
	pktNats "deck-builder-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IConsumerService drains the internal event bus: every frame goes to the
// session's websocket watchers and its debug trace, and terminal events
// additionally notify the NATS bus.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	hub            *websocket.Hub
	traceStore     *trace.Store
	eventPublisher *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	hub *websocket.Hub,
	traceStore *trace.Store,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		hub:            hub,
		traceStore:     traceStore,
		eventPublisher: eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	sessionID := msg.Metadata.Get(metaSessionID)
	if sessionID == "" {
		log.Printf("[ERROR] Event frame without session id, dropping")
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	ev, err := wfevents.Decode(msg.Payload)
	if err != nil {
		// A malformed frame is logged and skipped, never terminates the stream
		log.Printf("[ERROR] Failed to decode event frame for session %s: %v", sessionID, err)
		msg.Ack()
		return
	}

	cs.traceStore.Append(sessionID, ev)
	cs.hub.Publish(sessionID, msg.Payload, msg.Metadata.Get(metaDebug) == "1")

	cs.notifyTerminal(ctx, sessionID, ev)

	msg.Ack()
}

// notifyTerminal mirrors completion and failure onto NATS for downstream
// systems. The notification is auxiliary; failures are logged, not retried.
func (cs *consumerService) notifyTerminal(ctx context.Context, sessionID string, ev wfevents.Event) {
	if cs.eventPublisher == nil {
		return
	}

	var evtType string
	data := map[string]interface{}{"session_id": sessionID}

	switch typed := ev.(type) {
	case wfevents.Complete:
		evtType = "DECK_COMPLETED"
	case wfevents.Error:
		evtType = "DECK_FAILED"
		data["message"] = typed.Message
	default:
		return
	}

	evt := busevents.BaseEvent{
		Type:       evtType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		log.Printf("[WARN] Failed to publish %s event: %v", evtType, err)
	}
}
