package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants for the single-table design.
//
// Photos live under PK=PHOTO#{photoId}, darkroom timers under
// PK=DARKROOM#{userId}; both use SK=META. The UserStatusIndex GSI
// (partition userId, sort status) serves per-user status queries. Darkroom
// items carry no status attribute, so the index stays sparse.
const (
	pkPhoto    = "PHOTO#"
	pkDarkroom = "DARKROOM#"
	skMeta     = "META"

	// UserStatusIndex is the GSI name the table must define.
	UserStatusIndex = "UserStatusIndex"

	// maxTransactItems is the DynamoDB TransactWriteItems limit per call.
	maxTransactItems = 100
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoStore implements Store using AWS DynamoDB.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
}

// Compile-time interface check.
var _ Store = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

// TableName returns the backing table name.
func (s *DynamoStore) TableName() string {
	return s.tableName
}

// --- Internal helpers ---

func photoPK(photoID string) string {
	return pkPhoto + photoID
}

func darkroomPK(userID string) string {
	return pkDarkroom + userID
}

func itemKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: skMeta},
	}
}

// putItem marshals a domain object and writes it with PK and SK.
func (s *DynamoStore) putItem(ctx context.Context, pk string, data interface{}) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: skMeta}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s: %w", pk, err)
	}
	return nil
}

// getItem reads a single item and unmarshals it into out.
// Returns false if the item does not exist (out is not modified).
func (s *DynamoStore) getItem(ctx context.Context, pk string, out interface{}) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.tableName,
		Key:            itemKey(pk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s: %w", pk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s: %w", pk, err)
	}
	return true, nil
}

// updateExpression renders a PhotoUpdate as a SET expression. Attribute
// names are always aliased since "status" is a DynamoDB reserved word.
func updateExpression(u PhotoUpdate) (string, map[string]string, map[string]types.AttributeValue, error) {
	type field struct {
		name  string
		value interface{}
	}
	var fields []field
	if u.Status != nil {
		fields = append(fields, field{"status", string(*u.Status)})
	}
	if u.PhotoState != nil {
		fields = append(fields, field{"photoState", string(*u.PhotoState)})
	}
	if u.Month != nil {
		fields = append(fields, field{"month", *u.Month})
	}
	if u.RevealedAt != nil {
		fields = append(fields, field{"revealedAt", u.RevealedAt.UTC()})
	}
	if u.ScheduledForPermanentDeletionAt != nil {
		fields = append(fields, field{"scheduledForPermanentDeletionAt", u.ScheduledForPermanentDeletionAt.UTC()})
	}
	if u.TaggedUserIDs != nil {
		fields = append(fields, field{"taggedUserIds", u.TaggedUserIDs})
	}
	if u.Reactions != nil {
		fields = append(fields, field{"reactions", u.Reactions})
	}
	if u.ReactionCount != nil {
		fields = append(fields, field{"reactionCount", *u.ReactionCount})
	}
	if len(fields) == 0 {
		return "", nil, nil, nil
	}

	names := make(map[string]string, len(fields))
	values := make(map[string]types.AttributeValue, len(fields))
	clauses := make([]string, 0, len(fields))
	for _, f := range fields {
		av, err := attributevalue.Marshal(f.value)
		if err != nil {
			return "", nil, nil, fmt.Errorf("marshal %s: %w", f.name, err)
		}
		names["#"+f.name] = f.name
		values[":"+f.name] = av
		clauses = append(clauses, "#"+f.name+" = :"+f.name)
	}
	return "SET " + strings.Join(clauses, ", "), names, values, nil
}

// --- Photo operations ---

func (s *DynamoStore) GetPhoto(ctx context.Context, photoID string) (*Photo, error) {
	var photo Photo
	found, err := s.getItem(ctx, photoPK(photoID), &photo)
	if err != nil {
		return nil, fmt.Errorf("get photo %s: %w", photoID, err)
	}
	if !found {
		log.Debug().Str("photoId", photoID).Bool("found", false).Msg("GetPhoto: photo not found")
		return nil, nil
	}

	photo.ID = photoID
	return &photo, nil
}

func (s *DynamoStore) PutPhoto(ctx context.Context, photo *Photo) error {
	if err := s.putItem(ctx, photoPK(photo.ID), photo); err != nil {
		return fmt.Errorf("put photo %s: %w", photo.ID, err)
	}

	log.Debug().
		Str("photoId", photo.ID).
		Str("userId", photo.UserID).
		Str("status", string(photo.Status)).
		Msg("Photo persisted to DynamoDB")
	return nil
}

func (s *DynamoStore) UpdatePhoto(ctx context.Context, photoID string, u PhotoUpdate) error {
	expr, names, values, err := updateExpression(u)
	if err != nil {
		return fmt.Errorf("update photo %s: %w", photoID, err)
	}
	if expr == "" {
		return nil
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       itemKey(photoPK(photoID)),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("update photo %s: %w", photoID, ErrNotFound)
		}
		return fmt.Errorf("update photo %s: %w", photoID, err)
	}

	log.Debug().Str("photoId", photoID).Str("expression", expr).Msg("Photo updated")
	return nil
}

func (s *DynamoStore) QueryPhotos(ctx context.Context, userID string, status Status) ([]*Photo, error) {
	start := time.Now()
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		IndexName:              aws.String(UserStatusIndex),
		KeyConditionExpression: aws.String("userId = :u AND #s = :s"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
			":s": &types.AttributeValueMemberS{Value: string(status)},
		},
	}

	var allItems []map[string]types.AttributeValue

	// Handle pagination: DynamoDB returns up to 1MB per Query call.
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query %s userId=%s status=%s: %w", UserStatusIndex, userID, status, err)
		}
		allItems = append(allItems, result.Items...)

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	photos := make([]*Photo, 0, len(allItems))
	for _, item := range allItems {
		var photo Photo
		if err := attributevalue.UnmarshalMap(item, &photo); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("Failed to unmarshal photo, skipping")
			continue
		}

		// Extract photo ID from PK: "PHOTO#abc" → "abc"
		if pkAttr, ok := item["PK"].(*types.AttributeValueMemberS); ok {
			photo.ID = strings.TrimPrefix(pkAttr.Value, pkPhoto)
		}
		photos = append(photos, &photo)
	}

	log.Debug().
		Str("userId", userID).
		Str("status", string(status)).
		Int("count", len(photos)).
		Dur("duration", time.Since(start)).
		Msg("QueryPhotos: query completed")
	return photos, nil
}

// BatchUpdatePhotos applies patches with TransactWriteItems, 100 per call.
// Each chunk is atomic; a failure reports how many earlier chunks landed.
func (s *DynamoStore) BatchUpdatePhotos(ctx context.Context, patches []PhotoPatch) error {
	applied := 0
	for i := 0; i < len(patches); i += maxTransactItems {
		end := i + maxTransactItems
		if end > len(patches) {
			end = len(patches)
		}

		items := make([]types.TransactWriteItem, 0, end-i)
		for _, patch := range patches[i:end] {
			expr, names, values, err := updateExpression(patch.Update)
			if err != nil {
				return &BatchError{Applied: applied, Total: len(patches), Err: fmt.Errorf("photo %s: %w", patch.PhotoID, err)}
			}
			if expr == "" {
				continue
			}
			items = append(items, types.TransactWriteItem{
				Update: &types.Update{
					TableName:                 &s.tableName,
					Key:                       itemKey(photoPK(patch.PhotoID)),
					UpdateExpression:          aws.String(expr),
					ConditionExpression:       aws.String("attribute_exists(PK)"),
					ExpressionAttributeNames:  names,
					ExpressionAttributeValues: values,
				},
			})
		}

		if len(items) > 0 {
			_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
				TransactItems: items,
			})
			if err != nil {
				return &BatchError{Applied: applied, Total: len(patches), Err: transactError(err)}
			}
		}
		applied = end
	}

	log.Debug().Int("count", len(patches)).Msg("Photo batch update committed")
	return nil
}

// transactError maps a cancelled transaction whose cause was a failed
// existence condition onto ErrNotFound.
func transactError(err error) error {
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return fmt.Errorf("TransactWriteItems: %w", ErrNotFound)
			}
		}
	}
	return fmt.Errorf("TransactWriteItems: %w", err)
}

// --- Darkroom operations ---

func (s *DynamoStore) GetDarkroom(ctx context.Context, userID string) (*Darkroom, error) {
	var d Darkroom
	found, err := s.getItem(ctx, darkroomPK(userID), &d)
	if err != nil {
		return nil, fmt.Errorf("get darkroom %s: %w", userID, err)
	}
	if !found {
		return nil, nil
	}

	d.UserID = userID
	return &d, nil
}

func (s *DynamoStore) PutDarkroom(ctx context.Context, d *Darkroom) error {
	if err := s.putItem(ctx, darkroomPK(d.UserID), d); err != nil {
		return fmt.Errorf("put darkroom %s: %w", d.UserID, err)
	}

	evt := log.Debug().Str("userId", d.UserID)
	if d.NextRevealAt != nil {
		evt = evt.Time("nextRevealAt", *d.NextRevealAt)
	}
	evt.Msg("Darkroom persisted to DynamoDB")
	return nil
}
