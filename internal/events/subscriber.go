package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"skatt-service/internal/models"
	"skatt-service/internal/repository"
)

// MunicipalityRatesUpdatedEvent is received when an upstream rates
// source publishes new municipal tax rates
type MunicipalityRatesUpdatedEvent struct {
	EventType        string    `json:"event_type"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	CountyName       string    `json:"county_name,omitempty"`
	MunicipalTaxRate float64   `json:"municipal_tax_rate"`
	CountyTaxRate    float64   `json:"county_tax_rate"`
	ChurchTaxRate    float64   `json:"church_tax_rate"`
	Timestamp        time.Time `json:"timestamp"`
}

// Subscriber handles NATS event subscriptions for the tax service
type Subscriber struct {
	conn   *nats.Conn
	repo   repository.RateRepositoryInterface
	logger *logrus.Entry
}

// NewSubscriber creates a new event subscriber
func NewSubscriber(repo repository.RateRepositoryInterface, logger *logrus.Logger) (*Subscriber, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		return nil, fmt.Errorf("NATS_URL not set")
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("skatt-service-subscriber"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Subscriber{
		conn:   conn,
		repo:   repo,
		logger: logger.WithField("component", "events.subscriber"),
	}, nil
}

// Start begins listening for events
func (s *Subscriber) Start() error {
	_, err := s.conn.Subscribe("rates.municipality.updated", func(msg *nats.Msg) {
		s.handleMunicipalityRatesUpdated(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to rates.municipality.updated: %w", err)
	}

	s.logger.Info("Subscribed to rates.municipality.updated events for automatic rate refresh")
	return nil
}

// handleMunicipalityRatesUpdated upserts a municipality's rate preset
// from an upstream rate update
func (s *Subscriber) handleMunicipalityRatesUpdated(msg *nats.Msg) {
	var event MunicipalityRatesUpdatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.logger.WithError(err).Error("Failed to unmarshal rates.municipality.updated event")
		return
	}

	if event.Code == "" {
		s.logger.Warn("No municipality code in rates.municipality.updated event, skipping")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"code": event.Code,
		"name": event.Name,
	}).Info("Received rates.municipality.updated event, refreshing rates")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.upsertMunicipality(ctx, event); err != nil {
		s.logger.WithError(err).Error("Failed to refresh municipality rates")
		return
	}

	s.logger.WithField("code", event.Code).Info("Successfully refreshed municipality rates")
}

// upsertMunicipality updates an existing municipality's rates or
// creates the record if the code is new
func (s *Subscriber) upsertMunicipality(ctx context.Context, event MunicipalityRatesUpdatedEvent) error {
	existing, err := s.repo.GetMunicipalityByCode(ctx, event.Code)
	if err == nil && existing != nil {
		existing.MunicipalTaxRate = event.MunicipalTaxRate
		existing.CountyTaxRate = event.CountyTaxRate
		existing.ChurchTaxRate = event.ChurchTaxRate
		if event.Name != "" {
			existing.Name = event.Name
		}
		if event.CountyName != "" {
			existing.CountyName = event.CountyName
		}
		return s.repo.UpdateMunicipality(ctx, existing)
	}

	municipality := &models.Municipality{
		ID:               uuid.New(),
		Code:             event.Code,
		Name:             event.Name,
		CountyName:       event.CountyName,
		MunicipalTaxRate: event.MunicipalTaxRate,
		CountyTaxRate:    event.CountyTaxRate,
		ChurchTaxRate:    event.ChurchTaxRate,
		IsActive:         true,
	}
	return s.repo.CreateMunicipality(ctx, municipality)
}

// Close closes the subscriber connection
func (s *Subscriber) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
