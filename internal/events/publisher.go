package events

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

var (
	publisher     *Publisher
	publisherOnce sync.Once
	publisherMu   sync.RWMutex
)

// TaxCalculatedEvent is published after every tax calculation
type TaxCalculatedEvent struct {
	EventType        string    `json:"event_type"`
	EntityType       string    `json:"entity_type"`
	GrossIncome      float64   `json:"gross_income"`
	TotalTax         float64   `json:"total_tax"`
	EffectiveTaxRate float64   `json:"effective_tax_rate"`
	Timestamp        time.Time `json:"timestamp"`
}

// Publisher publishes tax events to NATS
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// InitPublisher initializes the singleton NATS publisher
func InitPublisher(logger *logrus.Logger) error {
	var initErr error
	publisherOnce.Do(func() {
		natsURL := os.Getenv("NATS_URL")
		if natsURL == "" {
			logger.Warn("NATS_URL not set, event publishing disabled")
			return
		}

		conn, err := nats.Connect(natsURL,
			nats.Name("skatt-service"),
			nats.ReconnectWait(2*time.Second),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			initErr = err
			return
		}

		publisherMu.Lock()
		publisher = &Publisher{
			conn:   conn,
			logger: logger.WithField("component", "events.publisher"),
		}
		publisherMu.Unlock()

		logger.Info("NATS events publisher initialized for skatt-service")
	})
	return initErr
}

// GetPublisher returns the singleton publisher instance, or nil when
// publishing is disabled
func GetPublisher() *Publisher {
	publisherMu.RLock()
	defer publisherMu.RUnlock()
	return publisher
}

// PublishTaxCalculated publishes a tax calculated event
func (p *Publisher) PublishTaxCalculated(ctx context.Context, entityType string, grossIncome, totalTax, effectiveTaxRate float64) error {
	event := TaxCalculatedEvent{
		EventType:        "tax.calculated",
		EntityType:       entityType,
		GrossIncome:      grossIncome,
		TotalTax:         totalTax,
		EffectiveTaxRate: effectiveTaxRate,
		Timestamp:        time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish("tax.calculated", data); err != nil {
		p.logger.WithError(err).Warn("Failed to publish tax.calculated event")
		return err
	}
	return nil
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close closes the publisher connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
