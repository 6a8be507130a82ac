package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"toyama-events-pipeline/internal/models"
)

// EventStore provides CRUD operations for the events table.
type EventStore struct {
	client      *dynamodb.Client
	eventsTable string
}

// eventItem is the persisted shape of an event. GSI keys let consumers
// query by category or by calendar day without scanning.
type eventItem struct {
	PK           string       `dynamodbav:"PK"`
	SK           string       `dynamodbav:"SK"`
	CategoryKey  string       `dynamodbav:"CategoryKey"`
	DateKey      string       `dynamodbav:"DateKey"`
	Event        models.Event `dynamodbav:"Event"`
	QualityScore int          `dynamodbav:"QualityScore"`
	CreatedAt    time.Time    `dynamodbav:"CreatedAt"`
	UpdatedAt    time.Time    `dynamodbav:"UpdatedAt"`
}

// NewEventStore creates a new event store instance
func NewEventStore(client *dynamodb.Client, eventsTable string) *EventStore {
	return &EventStore{
		client:      client,
		eventsTable: eventsTable,
	}
}

func itemKeys(event models.Event) (pk, sk, dateKey string) {
	pk = "EVENT#" + event.ID
	sk = "METADATA"
	if d := event.PrimaryDate(); !d.IsZero() {
		dateKey = d.Format("2006-01-02")
	}
	return pk, sk, dateKey
}

// UpsertEvent stores an event, keyed by its content-derived ID so repeated
// runs over the same data overwrite rather than duplicate.
func (s *EventStore) UpsertEvent(ctx context.Context, event models.Event) error {
	pk, sk, dateKey := itemKeys(event)
	now := time.Now()

	item, err := attributevalue.MarshalMap(eventItem{
		PK:           pk,
		SK:           sk,
		CategoryKey:  "CATEGORY#" + event.Category,
		DateKey:      dateKey,
		Event:        event,
		QualityScore: event.QualityScore,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.eventsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}

	return nil
}

// GetEvent retrieves an event by its ID
func (s *EventStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.eventsTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "EVENT#" + eventID},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("event %s not found", eventID)
	}

	var item eventItem
	err = attributevalue.UnmarshalMap(result.Item, &item)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &item.Event, nil
}

// DeleteEvent removes an event
func (s *EventStore) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.eventsTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "EVENT#" + eventID},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return nil
}

// QueryEventsByCategory queries events by category using the category GSI
func (s *EventStore) QueryEventsByCategory(ctx context.Context, category string, limit int32) ([]models.Event, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.eventsTable),
		IndexName:              aws.String("category-date-index"),
		KeyConditionExpression: aws.String("CategoryKey = :categoryKey"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":categoryKey": &types.AttributeValueMemberS{Value: "CATEGORY#" + category},
		},
		Limit: aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query events by category: %w", err)
	}

	return unmarshalEvents(result.Items)
}

// QueryEventsByDate queries events covering a calendar day using the date GSI
func (s *EventStore) QueryEventsByDate(ctx context.Context, day time.Time, limit int32) ([]models.Event, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.eventsTable),
		IndexName:              aws.String("date-quality-index"),
		KeyConditionExpression: aws.String("DateKey = :dateKey"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":dateKey": &types.AttributeValueMemberS{Value: day.Format("2006-01-02")},
		},
		Limit: aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query events by date: %w", err)
	}

	return unmarshalEvents(result.Items)
}

func unmarshalEvents(items []map[string]types.AttributeValue) ([]models.Event, error) {
	var records []eventItem
	err := attributevalue.UnmarshalListOfMaps(items, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal events: %w", err)
	}

	events := make([]models.Event, 0, len(records))
	for _, rec := range records {
		events = append(events, rec.Event)
	}
	return events, nil
}

// SyncEvents upserts every event that passed quality gating. Events with a
// critical issue or a score below minScore are skipped and counted, never
// stored. Dry-run logs what would be written without touching the table.
func (s *EventStore) SyncEvents(ctx context.Context, events []models.Event, minScore int, dryRun bool) (stored, skipped int, err error) {
	for _, event := range events {
		if !event.SyncEligible(minScore) {
			skipped++
			continue
		}
		if dryRun {
			log.Printf("dry-run: would upsert event %s (%s)", event.ID, event.Title)
			stored++
			continue
		}
		if err := s.UpsertEvent(ctx, event); err != nil {
			return stored, skipped, fmt.Errorf("failed to sync event %s: %w", event.ID, err)
		}
		stored++
	}
	return stored, skipped, nil
}
