package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"

	"github.com/calyptra/shoprec/internal/config"
	"github.com/calyptra/shoprec/internal/services"
	"github.com/calyptra/shoprec/pkg/models"
)

// interactionEventSchema validates messages off the interaction topic
// before they touch the store. Bad payloads are logged and skipped.
const interactionEventSchema = `{
	"type": "object",
	"required": ["user_id", "product_id", "action"],
	"properties": {
		"user_id": {
			"type": "string",
			"pattern": "^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$"
		},
		"product_id": {
			"type": "string",
			"pattern": "^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$"
		},
		"action": {
			"type": "string",
			"enum": ["view", "search", "cart", "wishlist", "purchase"]
		},
		"timestamp": {
			"type": "string",
			"format": "date-time"
		}
	},
	"additionalProperties": false
}`

// InteractionConsumer reads interaction events from Kafka and upserts them
// into the interaction store. The upsert is what enforces the
// one-record-per-(user, product, action) invariant: repeats increment the
// count and refresh the update timestamp.
type InteractionConsumer struct {
	reader *kafka.Reader
	schema *gojsonschema.Schema
	store  services.InteractionWriter
	logger *logrus.Logger
}

func NewInteractionConsumer(cfg *config.Config, store services.InteractionWriter, logger *logrus.Logger) (*InteractionConsumer, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(interactionEventSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile interaction event schema: %w", err)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topics.UserInteractions,
		GroupID:        cfg.Kafka.ConsumerGroup,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &InteractionConsumer{
		reader: reader,
		schema: schema,
		store:  store,
		logger: logger,
	}, nil
}

// Run consumes until the context is canceled. Individual bad messages
// never stop the loop.
func (c *InteractionConsumer) Run(ctx context.Context) error {
	c.logger.WithField("topic", c.reader.Config().Topic).Info("Interaction consumer started")

	for {
		message, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			c.logger.WithError(err).Error("Failed to read interaction message")
			continue
		}

		if err := c.handleMessage(ctx, message.Value); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"partition": message.Partition,
				"offset":    message.Offset,
			}).Warn("Skipping interaction message")
		}
	}
}

func (c *InteractionConsumer) handleMessage(ctx context.Context, payload []byte) error {
	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("schema validation errored: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("invalid interaction event: %v", result.Errors())
	}

	var event models.InteractionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal interaction event: %w", err)
	}

	if err := c.store.UpsertInteraction(ctx, event); err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"user_id":    event.UserID,
		"product_id": event.ProductID,
		"action":     event.Action,
	}).Debug("Interaction recorded")

	return nil
}

func (c *InteractionConsumer) Close() error {
	return c.reader.Close()
}
