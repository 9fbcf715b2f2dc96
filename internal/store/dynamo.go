package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/outfit"
)

// DynamoDB key constants for the single-table design.
const (
	ownerPrefix   = "OWNER#"
	sessionPrefix = "SESSION#"
	skProfile     = "PROFILE"
	skMeta        = "META"
	skWardrobe    = "WARDROBE#"
	skShopping    = "SHOPPING#"
	skHistory     = "HISTORY#"

	// maxBatchWrite is the DynamoDB BatchWriteItem limit per call.
	maxBatchWrite = 25
	// maxBatchRetries bounds how often unprocessed items are resubmitted.
	maxBatchRetries = 5
)

// DynamoAPI is the subset of the DynamoDB client the store calls.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoStore implements Store on a single DynamoDB table keyed by PK/SK.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

// Compile-time interface check.
var _ Store = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

// --- Internal helpers ---

func ownerPK(ownerID string) string     { return ownerPrefix + ownerID }
func sessionPK(sessionID string) string { return sessionPrefix + sessionID }

func itemPrefix(kind Kind) string {
	if kind == KindShopping {
		return skShopping
	}
	return skWardrobe
}

func keyOf(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// marshalWithKey marshals a domain object and stamps PK, SK and, when
// expires is non-zero, the expiresAt TTL attribute.
func marshalWithKey(pk, sk string, data any, expires int64) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	if expires > 0 {
		item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expires, 10)}
	}
	return item, nil
}

// putItem writes a domain object under pk/sk.
func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, data any, expires int64) error {
	item, err := marshalWithKey(pk, sk, data, expires)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// getItem reads a single item and unmarshals it into out.
// Returns false if the item does not exist (out is not modified).
func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out any) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       keyOf(pk, sk),
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

func (s *DynamoStore) deleteItem(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key:       keyOf(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// queryBySKPrefix returns every item under pk whose SK begins with
// skPrefix, newest first.
func (s *DynamoStore) queryBySKPrefix(ctx context.Context, pk, skPrefix string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pk},
			":skPrefix": &types.AttributeValueMemberS{Value: skPrefix},
		},
		ScanIndexForward: aws.Bool(false),
	}

	var allItems []map[string]types.AttributeValue
	// DynamoDB returns up to 1MB per Query call.
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s SK prefix=%s: %w", pk, skPrefix, err)
		}
		allItems = append(allItems, result.Items...)
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return allItems, nil
}

// batchPut writes items in chunks of maxBatchWrite, resubmitting
// unprocessed items a bounded number of times.
func (s *DynamoStore) batchPut(ctx context.Context, items []map[string]types.AttributeValue) error {
	for i := 0; i < len(items); i += maxBatchWrite {
		end := min(i+maxBatchWrite, len(items))

		requests := make([]types.WriteRequest, 0, end-i)
		for _, item := range items[i:end] {
			requests = append(requests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		pending := map[string][]types.WriteRequest{s.tableName: requests}
		for attempt := 0; len(pending[s.tableName]) > 0; attempt++ {
			if attempt >= maxBatchRetries {
				return fmt.Errorf("BatchWriteItem: %d items still unprocessed", len(pending[s.tableName]))
			}
			if attempt > 0 {
				log.Warn().
					Int("unprocessed", len(pending[s.tableName])).
					Int("attempt", attempt).
					Msg("Retrying unprocessed batch items")
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(attempt*50) * time.Millisecond):
				}
			}
			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("BatchWriteItem put (%d items): %w", len(pending[s.tableName]), err)
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

func (s *DynamoStore) requireOwner(ctx context.Context, ownerID string) error {
	ok, err := s.OwnerExists(ctx, ownerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOwnerNotFound
	}
	return nil
}

// --- Owner operations ---

type ownerRecord struct {
	CreatedAt time.Time `dynamodbav:"createdAt"`
}

func (s *DynamoStore) CreateOwner(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.putItem(ctx, ownerPK(id), skProfile, ownerRecord{CreatedAt: s.now().UTC()}, 0); err != nil {
		return "", err
	}
	log.Debug().Str("ownerId", id).Msg("Owner created")
	return id, nil
}

func (s *DynamoStore) OwnerExists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	return s.getItem(ctx, ownerPK(id), skProfile, nil)
}

// --- Item operations ---

func (s *DynamoStore) AddItem(ctx context.Context, ownerID string, kind Kind, item outfit.CategoryItem) (*Item, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	stored, err := toItems(ownerID, kind, []outfit.CategoryItem{item}, s.now())
	if err != nil {
		return nil, err
	}
	it := stored[0]
	if err := s.putItem(ctx, ownerPK(ownerID), itemPrefix(kind)+it.ID, it, 0); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *DynamoStore) AppendItems(ctx context.Context, ownerID string, kind Kind, items []outfit.CategoryItem) (int, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return 0, err
	}
	stored, err := toItems(ownerID, kind, items, s.now())
	if err != nil {
		return 0, err
	}
	if len(stored) == 0 {
		return 0, nil
	}

	avs := make([]map[string]types.AttributeValue, 0, len(stored))
	for _, it := range stored {
		av, err := marshalWithKey(ownerPK(ownerID), itemPrefix(kind)+it.ID, it, 0)
		if err != nil {
			return 0, err
		}
		avs = append(avs, av)
	}
	if err := s.batchPut(ctx, avs); err != nil {
		return 0, err
	}
	log.Debug().Str("ownerId", ownerID).Str("kind", string(kind)).Int("count", len(stored)).Msg("Items appended")
	return len(stored), nil
}

func (s *DynamoStore) ListItems(ctx context.Context, ownerID string, kind Kind) ([]Item, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	prefix := itemPrefix(kind)
	raw, err := s.queryBySKPrefix(ctx, ownerPK(ownerID), prefix)
	if err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(raw))
	for _, av := range raw {
		var it Item
		if err := attributevalue.UnmarshalMap(av, &it); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		it.ID = strings.TrimPrefix(skOf(av), prefix)
		it.OwnerID = ownerID
		out = append(out, it)
	}
	return out, nil
}

// --- History operations ---

func (s *DynamoStore) AppendHistory(ctx context.Context, ownerID string, rec *HistoryRecord) error {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return err
	}
	now := s.now()
	rec.ID = newID(now)
	rec.OwnerID = ownerID
	rec.CreatedAt = now.UTC()
	if rec.SelectedOptions == nil {
		rec.SelectedOptions = []string{}
	}
	return s.putItem(ctx, ownerPK(ownerID), skHistory+rec.ID, rec, 0)
}

func (s *DynamoStore) ListHistory(ctx context.Context, ownerID string) ([]HistoryRecord, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	raw, err := s.queryBySKPrefix(ctx, ownerPK(ownerID), skHistory)
	if err != nil {
		return nil, err
	}

	out := make([]HistoryRecord, 0, len(raw))
	for _, av := range raw {
		var rec HistoryRecord
		if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal history: %w", err)
		}
		rec.ID = strings.TrimPrefix(skOf(av), skHistory)
		rec.OwnerID = ownerID
		out = append(out, rec)
	}
	return out, nil
}

func (s *DynamoStore) UpdateHistorySelection(ctx context.Context, ownerID, recordID string, options []string) error {
	if options == nil {
		options = []string{}
	}
	sel, err := attributevalue.Marshal(options)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 keyOf(ownerPK(ownerID), skHistory+recordID),
		UpdateExpression:    aws.String("SET selectedOptions = :sel"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sel": sel,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("UpdateItem history %s: %w", recordID, err)
	}
	return nil
}

// --- Session operations ---

// PutSession writes the snapshot only if the stored version still matches,
// so warm instances sharing the table cannot overwrite each other's saves.
// Snapshots written before versioning carry no version attribute and count
// as version zero.
func (s *DynamoStore) PutSession(ctx context.Context, session *SessionRecord) error {
	now := s.now()
	next := *session
	next.UpdatedAt = now.Unix()
	next.Version++
	item, err := marshalWithKey(sessionPK(session.ID), skMeta, &next, sessionExpiry(now))
	if err != nil {
		return err
	}

	in := &dynamodb.PutItemInput{
		TableName:                &s.tableName,
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#v)"),
		ExpressionAttributeNames: map[string]string{"#v": "version"},
	}
	if session.Version > 0 {
		in.ConditionExpression = aws.String("#v = :prev")
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":prev": &types.AttributeValueMemberN{Value: strconv.FormatInt(session.Version, 10)},
		}
	}
	if _, err := s.client.PutItem(ctx, in); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: session %s", ErrConflict, session.ID)
		}
		return fmt.Errorf("PutItem session %s: %w", session.ID, err)
	}
	*session = next
	return nil
}

func (s *DynamoStore) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	var session SessionRecord
	found, err := s.getItem(ctx, sessionPK(id), skMeta, &session)
	if err != nil || !found {
		return nil, err
	}
	session.ID = id
	return &session, nil
}

func (s *DynamoStore) DeleteSession(ctx context.Context, id string) error {
	return s.deleteItem(ctx, sessionPK(id), skMeta)
}

// Close implements Store. The DynamoDB client holds no resources.
func (s *DynamoStore) Close() error { return nil }

func skOf(av map[string]types.AttributeValue) string {
	if v, ok := av["SK"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
