package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/brewhouse/cafe-backend/pkg/config"
	"github.com/brewhouse/cafe-backend/pkg/logger"
	"github.com/brewhouse/cafe-backend/pkg/outbox"
)

// OrderingKeyAttr names the message attribute used as the ordering key, so
// events of one order reach subscribers in commit order.
const OrderingKeyAttr = "aggregate_id"

var errClosed = errors.New("pubsub client closed")

// Client publishes outbox events. It keeps one Publisher per topic for the
// life of the process; Close flushes and stops them.
type Client struct {
	ps      *pubsub.Client
	project string
	topics  []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
	closed     bool
}

// Dial connects to Pub/Sub (or PUBSUB_EMULATOR_HOST) and fails unless every
// topic exists. Topics are not created here; provisioning owns them.
func Dial(ctx context.Context, gcp config.GCPConfig, topics []string, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	if len(topics) == 0 {
		return nil, errors.New("at least one topic is required")
	}
	ps, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{ps: ps, project: project, topics: topics, publishers: map[string]*pubsub.Publisher{}}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"project": project, "topics": topics}), "pubsub client ready")
	return c, nil
}

// Ping checks that every configured topic still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errClosed
	}
	for _, t := range c.topics {
		name := resourceName(c.project, t)
		if _, err := c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name}); err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("topic %s does not exist", name)
			}
			return fmt.Errorf("checking topic %s: %w", name, err)
		}
	}
	return nil
}

// Send publishes one message and waits for the broker ack. Errors the broker
// will keep returning are wrapped in outbox.ErrUndeliverable.
func (c *Client) Send(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	pub, err := c.publisher(topic)
	if err != nil {
		return "", err
	}
	key := attrs[OrderingKeyAttr]
	id, err := pub.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs, OrderingKey: key}).Get(ctx)
	if err == nil {
		return id, nil
	}
	if key != "" {
		// a failed ordered publish pauses the key until resumed
		pub.ResumePublish(key)
	}
	switch status.Code(err) {
	case codes.NotFound, codes.InvalidArgument:
		return "", fmt.Errorf("%w: %v", outbox.ErrUndeliverable, err)
	}
	return "", err
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	if c == nil {
		return nil, errClosed
	}
	name := resourceName(c.project, topic)
	if name == "" {
		return nil, fmt.Errorf("%w: empty topic", outbox.ErrUndeliverable)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ps == nil {
		return nil, errClosed
	}
	if pub, ok := c.publishers[name]; ok {
		return pub, nil
	}
	pub := c.ps.Publisher(name)
	pub.EnableMessageOrdering = true
	c.publishers[name] = pub
	return pub, nil
}

// Close flushes pending publishes and releases the connection. Safe on nil.
func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pubs := c.publishers
	c.publishers = nil
	c.mu.Unlock()

	for _, pub := range pubs {
		pub.Stop()
	}
	return c.ps.Close()
}

// resourceName expands a topic id to projects/<p>/topics/<id>; full names pass through.
func resourceName(project, topic string) string {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return ""
	case strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/"):
		return topic
	case project == "":
		return ""
	}
	return "projects/" + project + "/topics/" + topic
}
