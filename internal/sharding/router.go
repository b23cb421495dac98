package sharding

import (
	"errors"
	"fmt"
	"time"

	"github.com/minimall/order-backend/internal/aws"
)

// ErrMissingShardKey indicates the caller omitted the user id required for routing.
var ErrMissingShardKey = errors.New("user id is required for shard routing")

// Shard is one of the independent physical order backends. Each shard holds
// its own DynamoDB client handle; partition (table) names are identical across
// shards.
type Shard struct {
	Name string
	DB   aws.DynamoDBAPI
}

// Router maps a user id to a shard and a timestamp to a yearly partition.
// It holds no mutable state; both mappings are pure functions of their inputs.
//
// Sharding is a parity split: odd user ids go to shard A, even ids to shard B.
// There is no directory service and no rebalancing; shard membership is fixed
// infrastructure.
type Router struct {
	shardA *Shard
	shardB *Shard

	// earliestYear bounds partition enumeration from below. There is no
	// partition registry, so scans enumerate candidate tables by convention
	// from the current year down to this one.
	earliestYear int

	nowFunc func() time.Time
}

// NewRouter creates a Router over the two shards. earliestYear is the store's
// inception year, the oldest partition any scan will touch.
func NewRouter(shardA, shardB *Shard, earliestYear int) *Router {
	return &Router{
		shardA:       shardA,
		shardB:       shardB,
		earliestYear: earliestYear,
		nowFunc:      time.Now,
	}
}

// ShardFor selects the shard for a user id. Odd ids route to shard A, even
// ids to shard B. A non-positive id is a caller error, never defaulted.
func (r *Router) ShardFor(userID int64) (*Shard, error) {
	if userID <= 0 {
		return nil, ErrMissingShardKey
	}
	if userID%2 != 0 {
		return r.shardA, nil
	}
	return r.shardB, nil
}

// PartitionFor returns the partition (table) name for a timestamp's calendar
// year, e.g. "orders_2026".
func (r *Router) PartitionFor(t time.Time) string {
	return partitionName(t.Year())
}

// CurrentPartition returns the partition that receives writes right now.
func (r *Router) CurrentPartition() string {
	return r.PartitionFor(r.nowFunc())
}

// PartitionsToScan enumerates partition names from toYear down to fromYear,
// newest first, clamped below at the configured earliest year.
func (r *Router) PartitionsToScan(fromYear, toYear int) []string {
	if fromYear < r.earliestYear {
		fromYear = r.earliestYear
	}
	if toYear < fromYear {
		return nil
	}
	names := make([]string, 0, toYear-fromYear+1)
	for year := toYear; year >= fromYear; year-- {
		names = append(names, partitionName(year))
	}
	return names
}

// ScanRange enumerates every candidate partition, from the current year down
// to the earliest configured year, newest first.
func (r *Router) ScanRange() []string {
	return r.PartitionsToScan(r.earliestYear, r.nowFunc().Year())
}

func partitionName(year int) string {
	return fmt.Sprintf("orders_%d", year)
}
