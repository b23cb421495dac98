package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "cart:"
	cartTTL   = 7 * 24 * time.Hour
)

// Item is one cart line, stored as a JSON value in the user's cart hash,
// keyed by product id.
type Item struct {
	ProductID    int64     `json:"productId"`
	ProductName  string    `json:"productName"`
	ProductImage string    `json:"productImage,omitempty"`
	Price        int64     `json:"price"` // smallest currency unit
	Quantity     int64     `json:"quantity"`
	Category     string    `json:"category,omitempty"`
	AddedAt      time.Time `json:"addedAt"`
}

// Store keeps per-user carts in Redis hashes with a sliding 7-day TTL.
type Store struct {
	client  *redis.Client
	nowFunc func() time.Time
}

func NewStore(client *redis.Client) *Store {
	return &Store{
		client:  client,
		nowFunc: time.Now,
	}
}

func cartKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// AddItem puts an item into the cart, merging quantities when the product is
// already present, and refreshes the TTL.
func (s *Store) AddItem(ctx context.Context, userID int64, item Item) (Item, error) {
	key := cartKey(userID)
	field := strconv.FormatInt(item.ProductID, 10)

	existing, err := s.client.HGet(ctx, key, field).Result()
	if err == nil {
		var cur Item
		if uerr := json.Unmarshal([]byte(existing), &cur); uerr != nil {
			return Item{}, fmt.Errorf("decode cart item: %w", uerr)
		}
		cur.Quantity += item.Quantity
		item = cur
	} else if err != redis.Nil {
		return Item{}, fmt.Errorf("read cart item: %w", err)
	} else {
		item.AddedAt = s.nowFunc()
	}

	if err := s.writeItem(ctx, key, field, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// UpdateQuantity sets the quantity of a product already in the cart.
func (s *Store) UpdateQuantity(ctx context.Context, userID, productID, quantity int64) (Item, error) {
	key := cartKey(userID)
	field := strconv.FormatInt(productID, 10)

	raw, err := s.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return Item{}, fmt.Errorf("product %d not in cart", productID)
	}
	if err != nil {
		return Item{}, fmt.Errorf("read cart item: %w", err)
	}

	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return Item{}, fmt.Errorf("decode cart item: %w", err)
	}
	item.Quantity = quantity

	if err := s.writeItem(ctx, key, field, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// RemoveItem deletes one product from the cart.
func (s *Store) RemoveItem(ctx context.Context, userID, productID int64) error {
	if err := s.client.HDel(ctx, cartKey(userID), strconv.FormatInt(productID, 10)).Err(); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

// Get returns the cart contents without mutating them.
func (s *Store) Get(ctx context.Context, userID int64) ([]Item, error) {
	entries, err := s.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	return decodeEntries(entries)
}

// SnapshotAndClear atomically reads the cart contents and empties the cart.
// The read and the delete run in one MULTI/EXEC block so a concurrent add can
// not land between them and be silently dropped.
func (s *Store) SnapshotAndClear(ctx context.Context, userID int64) ([]Item, error) {
	key := cartKey(userID)

	pipe := s.client.TxPipeline()
	entries := pipe.HGetAll(ctx, key)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("snapshot cart: %w", err)
	}
	return decodeEntries(entries.Val())
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *Store) writeItem(ctx context.Context, key, field string, item Item) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode cart item: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, field, raw)
	pipe.Expire(ctx, key, cartTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write cart item: %w", err)
	}
	return nil
}

func decodeEntries(entries map[string]string) ([]Item, error) {
	items := make([]Item, 0, len(entries))
	for _, raw := range entries {
		var item Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("decode cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
