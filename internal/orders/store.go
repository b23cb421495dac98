package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/minimall/order-backend/internal/sharding"
)

// userIndexName is the GSI on user_id every partition table carries.
const userIndexName = "user_id-index"

// ErrOrderNotFound indicates no matching document across all scanned partitions.
var ErrOrderNotFound = errors.New("order not found")

// ErrInvalidTransition indicates the order exists but its current status does
// not permit the requested transition.
var ErrInvalidTransition = errors.New("invalid status transition")

// Store performs order CRUD routed through the shard router. It owns the
// scatter-gather read algorithm and the partition-scanning update/delete
// algorithms; it never inspects business semantics beyond the user id and
// created-at fields needed for routing and sorting.
type Store struct {
	router  *sharding.Router
	nowFunc func() time.Time
}

// NewStore creates a new order Store over the given router.
func NewStore(router *sharding.Router) *Store {
	return &Store{
		router:  router,
		nowFunc: time.Now,
	}
}

// Save writes the order into the current-year partition of the owning user's
// shard. Placement follows the time of the write call, not order.CreatedAt.
// A duplicate id overwrites; there is no upsert guard. Returns the persisted
// order with store-assigned defaults filled in.
func (s *Store) Save(ctx context.Context, order Order) (Order, error) {
	shard, err := s.router.ShardFor(order.UserID)
	if err != nil {
		return Order{}, err
	}

	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.nowFunc()
	}
	if order.Status == "" {
		order.Status = StatusPending
	}

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return Order{}, fmt.Errorf("marshal order: %w", err)
	}

	table := s.router.CurrentPartition()
	_, err = shard.DB.PutItem(ctx, &dyn.PutItemInput{
		TableName: &table,
		Item:      item,
	})
	if err != nil {
		return Order{}, fmt.Errorf("put order: %w", err)
	}
	return order, nil
}

// FindByUser returns every order owned by the user, sorted by created-at
// descending. It scatter-gathers across all candidate partitions of the
// user's shard concurrently; a missing or failing partition is skipped, never
// fatal, so historical unavailability cannot block current-order visibility.
// An absent or unknown user yields an empty slice, not an error.
func (s *Store) FindByUser(ctx context.Context, userID int64) ([]Order, error) {
	shard, err := s.router.ShardFor(userID)
	if err != nil {
		if errors.Is(err, sharding.ErrMissingShardKey) {
			return []Order{}, nil
		}
		return nil, err
	}

	tables := s.router.ScanRange()
	perPartition := make([][]Order, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	for i, table := range tables {
		g.Go(func() error {
			found, qerr := s.queryPartition(gctx, shard, table, userID)
			if qerr != nil {
				if partitionMissing(qerr) {
					// The table for that year was never created; expected
					// for old years.
					return nil
				}
				// A failing partition never fails the whole read; the merged
				// result simply misses that partition's orders.
				log.Warn().Err(qerr).
					Str("shard", shard.Name).
					Str("partition", table).
					Int64("user_id", userID).
					Msg("skipping partition during order fan-out")
				return nil
			}
			perPartition[i] = found
			return nil
		})
	}
	_ = g.Wait()

	merged := make([]Order, 0)
	for _, part := range perPartition {
		merged = append(merged, part...)
	}

	// Partitions carry no consistent internal ordering; sort the merged set.
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

func (s *Store) queryPartition(ctx context.Context, shard *sharding.Shard, table string, userID int64) ([]Order, error) {
	var out []Order
	var startKey map[string]types.AttributeValue
	for {
		resp, err := shard.DB.Query(ctx, &dyn.QueryInput{
			TableName:              &table,
			IndexName:              awsString(userIndexName),
			KeyConditionExpression: awsString("user_id = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": numberAttr(userID),
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", table, err)
		}
		for _, item := range resp.Items {
			var o Order
			if err := attributevalue.UnmarshalMap(item, &o); err != nil {
				return nil, fmt.Errorf("unmarshal order in %s: %w", table, err)
			}
			out = append(out, o)
		}
		if len(resp.LastEvaluatedKey) == 0 {
			return out, nil
		}
		startKey = resp.LastEvaluatedKey
	}
}

// FindOne locates a single order by id. Partitions are scanned newest first
// and scanning stops at the first hit, so recent orders touch one partition
// in the expected case. Returns ErrOrderNotFound when every configured
// partition has been exhausted.
func (s *Store) FindOne(ctx context.Context, userID int64, orderID string) (*Order, error) {
	shard, err := s.router.ShardFor(userID)
	if err != nil {
		return nil, err
	}

	for _, table := range s.router.ScanRange() {
		out, err := shard.DB.GetItem(ctx, &dyn.GetItemInput{
			TableName: &table,
			Key:       orderKey(orderID),
		})
		if err != nil {
			logPartitionSkip(err, shard.Name, table, orderID, "find")
			continue
		}
		if len(out.Item) == 0 {
			continue
		}
		var o Order
		if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
			log.Warn().Err(err).Str("partition", table).Str("order_id", orderID).
				Msg("skipping undecodable order document")
			continue
		}
		if o.UserID != userID {
			continue
		}
		return &o, nil
	}
	return nil, ErrOrderNotFound
}

// UpdateStatus transitions the order to next, scanning partitions newest
// first and applying a conditional update in the first partition holding a
// matching {order_id, user_id} document. The condition also pins the order's
// current status to the transition table's required predecessor, so illegal
// transitions (including resurrecting a cancelled order) fail with
// ErrInvalidTransition. Returns the post-update order.
func (s *Store) UpdateStatus(ctx context.Context, userID int64, orderID string, next Status) (*Order, error) {
	prev, ok := next.Predecessor()
	if !ok {
		return nil, fmt.Errorf("%w: no transition into %s", ErrInvalidTransition, next)
	}

	shard, err := s.router.ShardFor(userID)
	if err != nil {
		return nil, err
	}

	for _, table := range s.router.ScanRange() {
		out, err := shard.DB.UpdateItem(ctx, &dyn.UpdateItemInput{
			TableName:        &table,
			Key:              orderKey(orderID),
			UpdateExpression: awsString("SET #s = :next"),
			ExpressionAttributeNames: map[string]string{
				"#s": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":next":     &types.AttributeValueMemberS{Value: string(next)},
				":expected": &types.AttributeValueMemberS{Value: string(prev)},
				":uid":      numberAttr(userID),
			},
			ConditionExpression:                 awsString("user_id = :uid AND #s = :expected"),
			ReturnValues:                        types.ReturnValueAllNew,
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) {
				if len(ccf.Item) == 0 {
					// No such document in this partition; keep scanning.
					continue
				}
				var existing Order
				if uerr := attributevalue.UnmarshalMap(ccf.Item, &existing); uerr != nil {
					return nil, fmt.Errorf("unmarshal condition failure item: %w", uerr)
				}
				if existing.UserID != userID {
					// Same id under another owner is not a match for this
					// caller; keep scanning.
					continue
				}
				// The caller's order is here but its current status forbids
				// the transition. An order id is unique store-wide, so stop.
				return nil, fmt.Errorf("%w: %s -> %s requires current status %s",
					ErrInvalidTransition, orderID, next, prev)
			}
			logPartitionSkip(err, shard.Name, table, orderID, "update")
			continue
		}
		var o Order
		if err := attributevalue.UnmarshalMap(out.Attributes, &o); err != nil {
			return nil, fmt.Errorf("unmarshal updated order: %w", err)
		}
		return &o, nil
	}
	return nil, ErrOrderNotFound
}

// Delete hard-deletes the order from the first partition holding a matching
// {order_id, user_id} document. Irreversible; intended for operator and test
// cleanup, not user-facing cancellation.
func (s *Store) Delete(ctx context.Context, userID int64, orderID string) error {
	shard, err := s.router.ShardFor(userID)
	if err != nil {
		return err
	}

	for _, table := range s.router.ScanRange() {
		out, err := shard.DB.DeleteItem(ctx, &dyn.DeleteItemInput{
			TableName: &table,
			Key:       orderKey(orderID),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": numberAttr(userID),
			},
			ConditionExpression: awsString("user_id = :uid"),
			ReturnValues:        types.ReturnValueAllOld,
		})
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) {
				continue
			}
			logPartitionSkip(err, shard.Name, table, orderID, "delete")
			continue
		}
		if len(out.Attributes) > 0 {
			return nil
		}
	}
	return ErrOrderNotFound
}

// partitionMissing reports whether the error means the yearly table does not
// exist, which read and scan paths treat as an empty partition.
func partitionMissing(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException"
}

func logPartitionSkip(err error, shardName, table, orderID, op string) {
	if partitionMissing(err) {
		return
	}
	log.Warn().Err(err).
		Str("shard", shardName).
		Str("partition", table).
		Str("order_id", orderID).
		Str("op", op).
		Msg("skipping partition during order scan")
}

func orderKey(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func numberAttr(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func awsString(s string) *string { return &s }
