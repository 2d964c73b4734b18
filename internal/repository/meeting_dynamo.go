package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"coworkspace/internal/db"
	apperrors "coworkspace/internal/errors"
)

const (
	pkSlotPrefix    = "SLOT#"
	pkMeetingPrefix = "MEETING#"
	skMeta          = "META"
	dayKeyLayout    = "2006-01-02"

	// Meetings never span more than a day, so a range query also has to look
	// at the partition of the day before its start.
	lookbehind = 24 * time.Hour
)

// dynamodbAPI is the subset of *dynamodb.Client used by DynamoMeetingStore.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoMeetingStore keeps two items per meeting: a slot item keyed by UTC day
// and start time, which carries the one-active-meeting-per-start constraint,
// and a meeting item keyed by id for lookups. Bookings only start on the slot
// grid, so one active meeting per start means no two active meetings overlap. Expiry uses the table's native
// TTL on the "ttl" attribute, so no purge job is needed.
type DynamoMeetingStore struct {
	api       dynamodbAPI
	tableName string
}

func NewDynamoMeetingStore(api dynamodbAPI, tableName string) (*DynamoMeetingStore, error) {
	if api == nil {
		return nil, errors.New("meeting store: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("meeting store: table name must not be empty")
	}
	return &DynamoMeetingStore{api: api, tableName: tableName}, nil
}

func slotPK(start time.Time) string {
	return pkSlotPrefix + start.UTC().Format(dayKeyLayout)
}

func slotSK(start time.Time) string {
	return start.UTC().Format(time.RFC3339)
}

func meetingPK(id string) string {
	return pkMeetingPrefix + id
}

func (s *DynamoMeetingStore) Insert(ctx context.Context, m *db.Meeting) error {
	if m.ID == "" {
		return errors.New("meeting store: meeting id is required")
	}
	_, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(s.tableName),
					Item:                meetingItem(*m, slotPK(m.StartTime), slotSK(m.StartTime)),
					ConditionExpression: aws.String("attribute_not_exists(PK) OR #status = :cancelled"),
					ExpressionAttributeNames: map[string]string{
						"#status": "status",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":cancelled": &types.AttributeValueMemberS{Value: string(db.StatusCancelled)},
					},
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(s.tableName),
					Item:                meetingItem(*m, meetingPK(m.ID), skMeta),
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
		},
	})
	if err != nil {
		if slotConditionFailed(err) {
			return ErrSlotConflict
		}
		return fmt.Errorf("meeting store: insert: %w", err)
	}
	return nil
}

func (s *DynamoMeetingStore) FindByID(ctx context.Context, id string) (*db.Meeting, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: meetingPK(id)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("meeting store: get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, fmt.Errorf("meeting '%s': %w", id, apperrors.ErrNotFound)
	}
	m, err := itemToMeeting(out.Item)
	if err != nil {
		return nil, fmt.Errorf("meeting store: decode meeting: %w", err)
	}
	return &m, nil
}

func (s *DynamoMeetingStore) FindOverlapping(ctx context.Context, start, end time.Time, excludeStatus db.MeetingStatus) ([]db.Meeting, error) {
	return s.collect(ctx, start, end, excludeStatus, func(m db.Meeting) bool {
		return m.StartTime.Before(end) && m.EndTime.After(start)
	})
}

func (s *DynamoMeetingStore) FindInRange(ctx context.Context, start, end time.Time, excludeStatus db.MeetingStatus) ([]db.Meeting, error) {
	return s.collect(ctx, start, end, excludeStatus, func(m db.Meeting) bool {
		return !m.StartTime.Before(start) && m.StartTime.Before(end)
	})
}

func (s *DynamoMeetingStore) UpdateStatus(ctx context.Context, id string, status db.MeetingStatus) (*db.Meeting, error) {
	now := time.Now().UTC()
	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: meetingPK(id)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression:    aws.String("SET #status = :status, updatedAt = :updated"),
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :scheduled"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: string(status)},
			":scheduled": &types.AttributeValueMemberS{Value: string(db.StatusScheduled)},
			":updated":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return nil, fmt.Errorf("meeting '%s': %w", id, apperrors.ErrNotFound)
			}
			return nil, fmt.Errorf("meeting '%s' is %s: %w", id, stringAttr(ccf.Item, "status"), apperrors.ErrNotScheduled)
		}
		return nil, fmt.Errorf("meeting store: update status: %w", err)
	}
	m, err := itemToMeeting(out.Attributes)
	if err != nil {
		return nil, fmt.Errorf("meeting store: decode meeting: %w", err)
	}

	// The slot item may already belong to a newer booking of the same start.
	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: slotPK(m.StartTime)},
			"SK": &types.AttributeValueMemberS{Value: slotSK(m.StartTime)},
		},
		UpdateExpression:    aws.String("SET #status = :status, updatedAt = :updated"),
		ConditionExpression: aws.String("id = :id"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: string(status)},
			":updated": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
			":id":      &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if !errors.As(err, &ccf) {
			return nil, fmt.Errorf("meeting store: update slot status: %w", err)
		}
	}
	return &m, nil
}

func (s *DynamoMeetingStore) collect(ctx context.Context, start, end time.Time, excludeStatus db.MeetingStatus, keep func(db.Meeting) bool) ([]db.Meeting, error) {
	var meetings []db.Meeting
	for _, pk := range dayPartitions(start.Add(-lookbehind), end) {
		items, err := s.queryPartition(ctx, pk)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			m, err := itemToMeeting(item)
			if err != nil {
				return nil, fmt.Errorf("meeting store: decode meeting: %w", err)
			}
			if excludeStatus != "" && m.Status == excludeStatus {
				continue
			}
			if keep(m) {
				meetings = append(meetings, m)
			}
		}
	}
	sort.Slice(meetings, func(i, j int) bool { return meetings[i].StartTime.Before(meetings[j].StartTime) })
	return meetings, nil
}

func (s *DynamoMeetingStore) queryPartition(ctx context.Context, pk string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
			ExclusiveStartKey: startKey,
			ConsistentRead:    aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("meeting store: query %s: %w", pk, err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// dayPartitions lists the slot partitions for every UTC day touching [from, to].
func dayPartitions(from, to time.Time) []string {
	from = from.UTC()
	to = to.UTC()
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	var keys []string
	for !day.After(to) {
		keys = append(keys, pkSlotPrefix+day.Format(dayKeyLayout))
		day = day.AddDate(0, 0, 1)
	}
	return keys
}

func slotConditionFailed(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func meetingItem(m db.Meeting, pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":               &types.AttributeValueMemberS{Value: pk},
		"SK":               &types.AttributeValueMemberS{Value: sk},
		"id":               &types.AttributeValueMemberS{Value: m.ID},
		"fullName":         &types.AttributeValueMemberS{Value: m.FullName},
		"email":            &types.AttributeValueMemberS{Value: m.Email},
		"phoneNumber":      &types.AttributeValueMemberS{Value: m.PhoneNumber},
		"startTime":        &types.AttributeValueMemberS{Value: m.StartTime.UTC().Format(time.RFC3339Nano)},
		"endTime":          &types.AttributeValueMemberS{Value: m.EndTime.UTC().Format(time.RFC3339Nano)},
		"externalEventId":  &types.AttributeValueMemberS{Value: m.ExternalEventID},
		"externalJoinLink": &types.AttributeValueMemberS{Value: m.ExternalJoinLink},
		"status":           &types.AttributeValueMemberS{Value: string(m.Status)},
		"notes":            &types.AttributeValueMemberS{Value: m.Notes},
		"expiresAt":        &types.AttributeValueMemberS{Value: m.ExpiresAt.UTC().Format(time.RFC3339Nano)},
		"createdAt":        &types.AttributeValueMemberS{Value: m.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"updatedAt":        &types.AttributeValueMemberS{Value: m.UpdatedAt.UTC().Format(time.RFC3339Nano)},
		"ttl":              &types.AttributeValueMemberN{Value: strconv.FormatInt(m.ExpiresAt.Unix(), 10)},
	}
}

func itemToMeeting(item map[string]types.AttributeValue) (db.Meeting, error) {
	var m db.Meeting
	var err error
	m.ID = stringAttr(item, "id")
	if m.ID == "" {
		return db.Meeting{}, errors.New("item has no id")
	}
	m.FullName = stringAttr(item, "fullName")
	m.Email = stringAttr(item, "email")
	m.PhoneNumber = stringAttr(item, "phoneNumber")
	m.ExternalEventID = stringAttr(item, "externalEventId")
	m.ExternalJoinLink = stringAttr(item, "externalJoinLink")
	m.Status = db.MeetingStatus(stringAttr(item, "status"))
	m.Notes = stringAttr(item, "notes")
	if m.StartTime, err = timeAttr(item, "startTime"); err != nil {
		return db.Meeting{}, err
	}
	if m.EndTime, err = timeAttr(item, "endTime"); err != nil {
		return db.Meeting{}, err
	}
	if m.ExpiresAt, err = timeAttr(item, "expiresAt"); err != nil {
		return db.Meeting{}, err
	}
	if m.CreatedAt, err = timeAttr(item, "createdAt"); err != nil {
		return db.Meeting{}, err
	}
	if m.UpdatedAt, err = timeAttr(item, "updatedAt"); err != nil {
		return db.Meeting{}, err
	}
	return m, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func timeAttr(item map[string]types.AttributeValue, name string) (time.Time, error) {
	raw := stringAttr(item, name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("attribute %s: %w", name, err)
	}
	return t, nil
}
