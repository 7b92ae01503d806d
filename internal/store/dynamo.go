package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

var _ DynamoAPI = (*dynamodb.Client)(nil)

// Dynamo is the DynamoDB-backed ItemStore.
type Dynamo struct {
	client  DynamoAPI
	schemas map[string]Schema
}

var _ ItemStore = (*Dynamo)(nil)

// NewDynamo wraps client. Schemas are only needed by CreateTables.
func NewDynamo(client DynamoAPI, schemas ...Schema) *Dynamo {
	d := &Dynamo{client: client, schemas: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		d.schemas[s.Table] = s
	}
	return d
}

func (d *Dynamo) Get(ctx context.Context, table string, key Key) (Item, error) {
	av, err := attributevalue.MarshalMap(map[string]any(key))
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            av,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", table, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return unmarshalItem(out.Item)
}

func (d *Dynamo) Put(ctx context.Context, table string, item Item, cond Condition) error {
	av, err := attributevalue.MarshalMap(map[string]any(item))
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	in := &dynamodb.PutItemInput{TableName: aws.String(table), Item: av}
	if cond != nil {
		cb, err := dynamoCondition(cond)
		if err != nil {
			return err
		}
		expr, err := expression.NewBuilder().WithCondition(cb).Build()
		if err != nil {
			return fmt.Errorf("build condition: %w", err)
		}
		in.ConditionExpression = expr.Condition()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}
	if _, err := d.client.PutItem(ctx, in); err != nil {
		return translateDynamoErr(fmt.Sprintf("put item %s", table), err)
	}
	return nil
}

func (d *Dynamo) Update(ctx context.Context, table string, key Key, in UpdateInput) (Item, error) {
	if len(in.Set) == 0 && len(in.Remove) == 0 {
		return nil, errors.New("store: update without set or remove")
	}
	av, err := attributevalue.MarshalMap(map[string]any(key))
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}

	var ub expression.UpdateBuilder
	for name, v := range in.Set {
		ub = ub.Set(expression.Name(name), expression.Value(v))
	}
	for _, name := range in.Remove {
		ub = ub.Remove(expression.Name(name))
	}
	b := expression.NewBuilder().WithUpdate(ub)
	if in.Condition != nil {
		cb, err := dynamoCondition(in.Condition)
		if err != nil {
			return nil, err
		}
		b = b.WithCondition(cb)
	}
	expr, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       av,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, translateDynamoErr(fmt.Sprintf("update item %s", table), err)
	}
	return unmarshalItem(out.Attributes)
}

func (d *Dynamo) Query(ctx context.Context, in QueryInput) (Page, error) {
	kc := expression.Key(in.KeyName).Equal(expression.Value(in.KeyValue))
	expr, err := expression.NewBuilder().WithKeyCondition(kc).Build()
	if err != nil {
		return Page{}, fmt.Errorf("build key condition: %w", err)
	}

	q := &dynamodb.QueryInput{
		TableName:                 aws.String(in.Table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if in.Index != "" {
		q.IndexName = aws.String(in.Index)
	}
	if in.Limit > 0 {
		q.Limit = aws.Int32(int32(in.Limit))
	}
	if in.StartToken != "" {
		var start map[string]any
		if err := DecodeToken(in.StartToken, &start); err != nil {
			return Page{}, err
		}
		if q.ExclusiveStartKey, err = attributevalue.MarshalMap(start); err != nil {
			return Page{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	out, err := d.client.Query(ctx, q)
	if err != nil {
		return Page{}, fmt.Errorf("query %s: %w", in.Table, err)
	}

	page := Page{Items: make([]Item, 0, len(out.Items))}
	for _, raw := range out.Items {
		it, err := unmarshalItem(raw)
		if err != nil {
			return Page{}, err
		}
		page.Items = append(page.Items, it)
	}
	if len(out.LastEvaluatedKey) > 0 {
		var last map[string]any
		if err := attributevalue.UnmarshalMap(out.LastEvaluatedKey, &last); err != nil {
			return Page{}, fmt.Errorf("unmarshal last key: %w", err)
		}
		if page.NextToken, err = EncodeToken(last); err != nil {
			return Page{}, err
		}
	}
	return page, nil
}

func (d *Dynamo) BatchPut(ctx context.Context, table string, items []Item) ([]Item, error) {
	if len(items) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d items", ErrBatchTooLarge, len(items))
	}
	if len(items) == 0 {
		return nil, nil
	}

	reqs := make([]types.WriteRequest, 0, len(items))
	for _, it := range items {
		av, err := attributevalue.MarshalMap(map[string]any(it))
		if err != nil {
			return nil, fmt.Errorf("marshal item: %w", err)
		}
		reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{table: reqs},
	})
	if err != nil {
		return nil, fmt.Errorf("batch write %s: %w", table, err)
	}

	var unprocessed []Item
	for _, req := range out.UnprocessedItems[table] {
		if req.PutRequest == nil {
			continue
		}
		it, err := unmarshalItem(req.PutRequest.Item)
		if err != nil {
			return nil, err
		}
		unprocessed = append(unprocessed, it)
	}
	return unprocessed, nil
}

// CreateTables creates every registered table with on-demand billing. Tables
// that already exist are left alone.
func (d *Dynamo) CreateTables(ctx context.Context) error {
	for _, s := range d.schemas {
		in := createTableInput(s)
		if _, err := d.client.CreateTable(ctx, in); err != nil {
			var inUse *types.ResourceInUseException
			if errors.As(err, &inUse) {
				continue
			}
			return fmt.Errorf("create table %s: %w", s.Table, err)
		}
	}
	return nil
}

func createTableInput(s Schema) *dynamodb.CreateTableInput {
	attrs := map[string]bool{}
	var defs []types.AttributeDefinition
	define := func(name string) {
		if name == "" || attrs[name] {
			return
		}
		attrs[name] = true
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}
	keySchema := func(pk, sk string) []types.KeySchemaElement {
		define(pk)
		out := []types.KeySchemaElement{{AttributeName: aws.String(pk), KeyType: types.KeyTypeHash}}
		if sk != "" {
			define(sk)
			out = append(out, types.KeySchemaElement{AttributeName: aws.String(sk), KeyType: types.KeyTypeRange})
		}
		return out
	}

	in := &dynamodb.CreateTableInput{
		TableName:   aws.String(s.Table),
		KeySchema:   keySchema(s.PartitionKey, s.SortKey),
		BillingMode: types.BillingModePayPerRequest,
	}
	for _, idx := range s.Indexes {
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  aws.String(idx.Name),
			KeySchema:  keySchema(idx.PartitionKey, idx.SortKey),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	in.AttributeDefinitions = defs
	return in
}

func dynamoCondition(c Condition) (expression.ConditionBuilder, error) {
	switch c := c.(type) {
	case attrExists:
		if c.exists {
			return expression.AttributeExists(expression.Name(c.name)), nil
		}
		return expression.AttributeNotExists(expression.Name(c.name)), nil
	case equal:
		return expression.Name(c.name).Equal(expression.Value(c.value)), nil
	case lessThan:
		return expression.Name(c.name).LessThan(expression.Value(c.value)), nil
	case and:
		return combine(c.conds, expression.And)
	case or:
		return combine(c.conds, expression.Or)
	default:
		return expression.ConditionBuilder{}, fmt.Errorf("store: unsupported condition %T", c)
	}
}

func combine(conds []Condition, join func(l, r expression.ConditionBuilder, rest ...expression.ConditionBuilder) expression.ConditionBuilder) (expression.ConditionBuilder, error) {
	if len(conds) == 0 {
		return expression.ConditionBuilder{}, errors.New("store: empty compound condition")
	}
	built := make([]expression.ConditionBuilder, 0, len(conds))
	for _, sub := range conds {
		cb, err := dynamoCondition(sub)
		if err != nil {
			return expression.ConditionBuilder{}, err
		}
		built = append(built, cb)
	}
	if len(built) == 1 {
		return built[0], nil
	}
	return join(built[0], built[1], built[2:]...), nil
}

func translateDynamoErr(op string, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrConditionFailed
	}
	return fmt.Errorf("%s: %w", op, err)
}

func unmarshalItem(raw map[string]types.AttributeValue) (Item, error) {
	var it Item
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return it, nil
}
