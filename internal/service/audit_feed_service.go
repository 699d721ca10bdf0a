package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/civiclens/civiclens-api/internal/dto"
	"github.com/civiclens/civiclens-api/internal/observability"
)

const feedSendBufferSize = 32

// FeedConnectionOptions wraps metadata extracted during the HTTP upgrade.
type FeedConnectionOptions struct {
	CorrelationID string
	Context       context.Context
}

// AuditFeedService fans audit outcomes out to live websocket subscribers and
// to external consumers via redis pub/sub and NATS.
type AuditFeedService interface {
	AuditEventSink
	ServeConnection(conn *websocket.Conn, opts FeedConnectionOptions)
	Start(ctx context.Context)
}

type auditFeedService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	hub          *feedHub
	nodeID       string
}

// feedHub tracks active websocket subscribers.
type feedHub struct {
	mu      sync.RWMutex
	clients map[*feedClient]struct{}
	log     zerolog.Logger
}

type feedClient struct {
	conn    *websocket.Conn
	send    chan dto.AuditEvent
	service *auditFeedService
	closed  chan struct{}
	once    sync.Once
}

// feedEnvelope carries the publishing node so each instance can skip events it
// already delivered locally.
type feedEnvelope struct {
	Source string         `json:"source"`
	Event  dto.AuditEvent `json:"event"`
	SentAt time.Time      `json:"sent_at"`
}

// NewAuditFeedService creates the audit event fan-out. Redis and NATS are both
// optional; with neither configured the feed still serves local subscribers.
func NewAuditFeedService(redisClient *redis.Client, natsConn *nats.Conn, channel string, logger zerolog.Logger) AuditFeedService {
	natsSubject := ""
	if channel != "" {
		natsSubject = strings.ReplaceAll(channel, ":", ".")
	}

	return &auditFeedService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		logger:       logger.With().Str("component", "audit_feed").Logger(),
		hub: &feedHub{
			clients: make(map[*feedClient]struct{}),
			log:     logger.With().Str("component", "audit_feed_hub").Logger(),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *auditFeedService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// PublishAuditEvent delivers the event to local subscribers and forwards it to
// the configured brokers. Broker failures are logged, never surfaced: event
// delivery is best effort and must not fail an audit run.
func (s *auditFeedService) PublishAuditEvent(ctx context.Context, event dto.AuditEvent) {
	s.hub.broadcast(event)

	envelope := feedEnvelope{
		Source: s.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal audit event")
		observability.EventsPublished().WithLabelValues("error").Inc()
		return
	}

	outcome := "ok"
	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Str("report_id", event.ReportID).Msg("failed to publish audit event to redis")
			outcome = "error"
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Str("report_id", event.ReportID).Msg("failed to publish audit event to nats")
			outcome = "error"
		}
	}

	observability.EventsPublished().WithLabelValues(outcome).Inc()
}

func (s *auditFeedService) ServeConnection(conn *websocket.Conn, opts FeedConnectionOptions) {
	client := &feedClient{
		conn:    conn,
		send:    make(chan dto.AuditEvent, feedSendBufferSize),
		service: s,
		closed:  make(chan struct{}),
	}

	s.hub.register(client)
	observability.FeedClients().Inc()

	go client.writer()
	client.reader()
}

func (s *auditFeedService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("audit feed redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *auditFeedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "civiclens-feed", func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats audit subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain audit feed nats subscription")
		}
	}()
}

func (s *auditFeedService) handleEnvelope(data []byte) {
	var envelope feedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid audit feed envelope")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	s.hub.broadcast(envelope.Event)
}

func (h *feedHub) register(client *feedClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.log.Debug().Msg("audit feed client connected")
}

func (h *feedHub) unregister(client *feedClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	h.log.Debug().Msg("audit feed client disconnected")
}

func (h *feedHub) broadcast(event dto.AuditEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			h.log.Warn().Str("report_id", event.ReportID).Msg("dropping audit event for slow feed client")
		}
	}
}

// reader drains the connection so close frames are processed. The feed is
// one-way: inbound payloads are ignored.
func (c *feedClient) reader() {
	defer c.close()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.service.logger.Debug().Err(err).Msg("audit feed read loop ended")
			return
		}
	}
}

func (c *feedClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("audit feed write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("audit feed ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		observability.FeedClients().Dec()
		_ = c.conn.Close()
	})
}
