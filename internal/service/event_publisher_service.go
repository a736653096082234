package service

import (
	"deck-builder-be/internal/pkg/logger"
	wfevents "deck-builder-be/pkg/deck/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	metaSessionID = "session_id"
	metaDebug     = "debug"
)

// IEventPublisherService carries workflow transition records from the
// orchestrator onto the internal event bus. Every record is projected once
// into its wire events here; consumers downstream only ever see encoded
// frames.
type IEventPublisherService interface {
	Emit(sessionID string, rec wfevents.Record)
}

type eventPublisherService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	logger    logger.ILogger
}

func NewEventPublisherService(
	pubSub *gochannel.GoChannel,
	topicName string,
	log logger.ILogger,
) IEventPublisherService {
	return &eventPublisherService{
		pubSub:    pubSub,
		topicName: topicName,
		logger:    log,
	}
}

func (p *eventPublisherService) Emit(sessionID string, rec wfevents.Record) {
	for _, ev := range rec.Project(true) {
		frame, err := wfevents.Encode(ev)
		if err != nil {
			p.logger.Error("EventPublisher", "Failed to encode event", map[string]interface{}{
				"session_id": sessionID,
				"event_type": ev.EventType(),
				"error":      err.Error(),
			})
			continue
		}

		msg := message.NewMessage(watermill.NewUUID(), frame)
		msg.Metadata.Set(metaSessionID, sessionID)
		if wfevents.IsDebug(ev) {
			msg.Metadata.Set(metaDebug, "1")
		}

		if err := p.pubSub.Publish(p.topicName, msg); err != nil {
			p.logger.Error("EventPublisher", "Failed to publish event", map[string]interface{}{
				"session_id": sessionID,
				"event_type": ev.EventType(),
				"error":      err.Error(),
			})
		}
	}
}
