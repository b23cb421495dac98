package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamoDB is an in-memory stand-in for one shard's DynamoDB client.
// Tables must be created explicitly; touching an absent table returns
// ResourceNotFoundException, matching the real service for partitions that
// were never provisioned.
type mockDynamoDB struct {
	mu        sync.Mutex
	tables    map[string]map[string]map[string]types.AttributeValue
	tableErrs map[string]error
}

func newMockDynamoDB(tables ...string) *mockDynamoDB {
	m := &mockDynamoDB{
		tables:    make(map[string]map[string]map[string]types.AttributeValue),
		tableErrs: make(map[string]error),
	}
	for _, t := range tables {
		m.tables[t] = make(map[string]map[string]types.AttributeValue)
	}
	return m
}

func (m *mockDynamoDB) failTable(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tableErrs[table] = err
}

func (m *mockDynamoDB) seed(t *testing.T, table string, o Order) {
	t.Helper()
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		t.Fatalf("seed marshal: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, ok := m.tables[table]
	if !ok {
		t.Fatalf("seed into missing table %s", table)
	}
	tbl[o.ID] = item
}

func (m *mockDynamoDB) count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

// lookup returns the table map or the error the store should see.
func (m *mockDynamoDB) lookup(table string) (map[string]map[string]types.AttributeValue, error) {
	if err, ok := m.tableErrs[table]; ok {
		return nil, err
	}
	tbl, ok := m.tables[table]
	if !ok {
		return nil, &types.ResourceNotFoundException{}
	}
	return tbl, nil
}

func keyID(key map[string]types.AttributeValue) string {
	if s, ok := key["order_id"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	}
	return false
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (m *mockDynamoDB) PutItem(_ context.Context, params *dyn.PutItemInput, _ ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, err := m.lookup(*params.TableName)
	if err != nil {
		return nil, err
	}
	tbl[keyID(params.Item)] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamoDB) GetItem(_ context.Context, params *dyn.GetItemInput, _ ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, err := m.lookup(*params.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := tbl[keyID(params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (m *mockDynamoDB) Query(_ context.Context, params *dyn.QueryInput, _ ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, err := m.lookup(*params.TableName)
	if err != nil {
		return nil, err
	}
	uid := params.ExpressionAttributeValues[":uid"]
	var items []map[string]types.AttributeValue
	for _, item := range tbl {
		if attrEqual(item["user_id"], uid) {
			items = append(items, copyItem(item))
		}
	}
	return &dyn.QueryOutput{Items: items}, nil
}

func (m *mockDynamoDB) UpdateItem(_ context.Context, params *dyn.UpdateItemInput, _ ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, err := m.lookup(*params.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := tbl[keyID(params.Key)]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	vals := params.ExpressionAttributeValues
	if !attrEqual(item["user_id"], vals[":uid"]) || !attrEqual(item["status"], vals[":expected"]) {
		return nil, &types.ConditionalCheckFailedException{Item: copyItem(item)}
	}
	item["status"] = vals[":next"]
	return &dyn.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (m *mockDynamoDB) DeleteItem(_ context.Context, params *dyn.DeleteItemInput, _ ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, err := m.lookup(*params.TableName)
	if err != nil {
		return nil, err
	}
	id := keyID(params.Key)
	item, ok := tbl[id]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if !attrEqual(item["user_id"], params.ExpressionAttributeValues[":uid"]) {
		return nil, &types.ConditionalCheckFailedException{Item: copyItem(item)}
	}
	delete(tbl, id)
	return &dyn.DeleteItemOutput{Attributes: item}, nil
}
