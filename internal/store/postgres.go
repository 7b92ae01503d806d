package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemRow is the single relational table backing every logical table.
type ItemRow struct {
	Table     string            `gorm:"column:table_name;primaryKey;size:128"`
	PK        string            `gorm:"column:pk;primaryKey;size:512"`
	SK        string            `gorm:"column:sk;primaryKey;size:512"`
	Data      datatypes.JSONMap `gorm:"column:data;type:jsonb;not null"`
	UpdatedAt time.Time         `gorm:"column:updated_at"`
}

func (ItemRow) TableName() string { return "items" }

// Postgres is the gorm-backed ItemStore. Secondary index queries become
// JSON field lookups on the data column.
type Postgres struct {
	db      *gorm.DB
	schemas map[string]Schema
}

var _ ItemStore = (*Postgres)(nil)

func NewPostgres(db *gorm.DB, schemas ...Schema) *Postgres {
	p := &Postgres{db: db, schemas: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		p.schemas[s.Table] = s
	}
	return p
}

// Migrate creates or updates the items table.
func (p *Postgres) Migrate(ctx context.Context) error {
	return p.db.WithContext(ctx).AutoMigrate(&ItemRow{})
}

func (p *Postgres) Get(ctx context.Context, table string, key Key) (Item, error) {
	s, err := p.schema(table)
	if err != nil {
		return nil, err
	}
	pk, sk, err := rowKey(s, Item(key))
	if err != nil {
		return nil, err
	}
	var row ItemRow
	err = p.db.WithContext(ctx).
		Where("table_name = ? AND pk = ? AND sk = ?", table, pk, sk).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", table, err)
	}
	return Item(row.Data), nil
}

func (p *Postgres) Put(ctx context.Context, table string, item Item, cond Condition) error {
	s, err := p.schema(table)
	if err != nil {
		return err
	}
	pk, sk, err := rowKey(s, item)
	if err != nil {
		return err
	}
	data, err := copyItem(item)
	if err != nil {
		return err
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cond != nil {
			existing, err := lockRow(tx, table, pk, sk)
			if err != nil {
				return err
			}
			if !Evaluate(cond, existing) {
				return ErrConditionFailed
			}
		}
		return upsert(tx, ItemRow{Table: table, PK: pk, SK: sk, Data: datatypes.JSONMap(data), UpdatedAt: time.Now().UTC()})
	})
}

func (p *Postgres) Update(ctx context.Context, table string, key Key, in UpdateInput) (Item, error) {
	s, err := p.schema(table)
	if err != nil {
		return nil, err
	}
	pk, sk, err := rowKey(s, Item(key))
	if err != nil {
		return nil, err
	}

	var result Item
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockRow(tx, table, pk, sk)
		if err != nil {
			return err
		}
		if !Evaluate(in.Condition, existing) {
			return ErrConditionFailed
		}
		next := Item{}
		for k, v := range existing {
			next[k] = v
		}
		for k, v := range key {
			next[k] = v
		}
		for k, v := range in.Set {
			next[k] = v
		}
		for _, k := range in.Remove {
			delete(next, k)
		}
		if next, err = copyItem(next); err != nil {
			return err
		}
		result = next
		return upsert(tx, ItemRow{Table: table, PK: pk, SK: sk, Data: datatypes.JSONMap(next), UpdatedAt: time.Now().UTC()})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type postgresCursor struct {
	Offset int `json:"offset"`
}

func (p *Postgres) Query(ctx context.Context, in QueryInput) (Page, error) {
	s, err := p.schema(in.Table)
	if err != nil {
		return Page{}, err
	}
	idx, ok := s.Index(in.Index)
	if !ok {
		return Page{}, fmt.Errorf("%w: %s on %s", ErrUnknownIndex, in.Index, in.Table)
	}
	keyName := in.KeyName
	if keyName == "" {
		keyName = idx.PartitionKey
	}

	var cur postgresCursor
	if in.StartToken != "" {
		if err := DecodeToken(in.StartToken, &cur); err != nil {
			return Page{}, err
		}
	}

	q := p.db.WithContext(ctx).
		Where("table_name = ?", in.Table).
		Where("data->>? = ?", keyName, scalarString(in.KeyValue))
	if idx.SortKey != "" {
		q = q.Clauses(clause.OrderBy{Expression: clause.Expr{SQL: "data->>? ASC, pk ASC, sk ASC", Vars: []any{idx.SortKey}, WithoutParentheses: true}})
	} else {
		q = q.Order("pk ASC, sk ASC")
	}
	q = q.Offset(cur.Offset)
	if in.Limit > 0 {
		// One extra row tells us whether another page exists.
		q = q.Limit(in.Limit + 1)
	}

	var rows []ItemRow
	if err := q.Find(&rows).Error; err != nil {
		return Page{}, fmt.Errorf("query %s: %w", in.Table, err)
	}

	var page Page
	if in.Limit > 0 && len(rows) > in.Limit {
		rows = rows[:in.Limit]
		if page.NextToken, err = EncodeToken(postgresCursor{Offset: cur.Offset + in.Limit}); err != nil {
			return Page{}, err
		}
	}
	page.Items = make([]Item, 0, len(rows))
	for _, r := range rows {
		page.Items = append(page.Items, Item(r.Data))
	}
	return page, nil
}

// BatchPut writes the whole batch in one transaction; postgres never reports
// an unprocessed subset.
func (p *Postgres) BatchPut(ctx context.Context, table string, items []Item) ([]Item, error) {
	if len(items) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d items", ErrBatchTooLarge, len(items))
	}
	if len(items) == 0 {
		return nil, nil
	}
	s, err := p.schema(table)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rows := make([]ItemRow, 0, len(items))
	for _, it := range items {
		pk, sk, err := rowKey(s, it)
		if err != nil {
			return nil, err
		}
		data, err := copyItem(it)
		if err != nil {
			return nil, err
		}
		rows = append(rows, ItemRow{Table: table, PK: pk, SK: sk, Data: datatypes.JSONMap(data), UpdatedAt: now})
	}

	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "table_name"}, {Name: "pk"}, {Name: "sk"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("batch write %s: %w", table, err)
	}
	return nil, nil
}

func (p *Postgres) schema(table string) (Schema, error) {
	s, ok := p.schemas[table]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return s, nil
}

func lockRow(tx *gorm.DB, table, pk, sk string) (Item, error) {
	var row ItemRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("table_name = ? AND pk = ? AND sk = ?", table, pk, sk).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Item(row.Data), nil
}

func upsert(tx *gorm.DB, row ItemRow) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "table_name"}, {Name: "pk"}, {Name: "sk"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
}

func rowKey(s Schema, item Item) (pk, sk string, err error) {
	v, ok := item[s.PartitionKey]
	if !ok || v == nil || v == "" {
		return "", "", fmt.Errorf("%w: %s.%s", ErrMissingKey, s.Table, s.PartitionKey)
	}
	pk = scalarString(v)
	if s.SortKey != "" {
		v, ok := item[s.SortKey]
		if !ok || v == nil || v == "" {
			return "", "", fmt.Errorf("%w: %s.%s", ErrMissingKey, s.Table, s.SortKey)
		}
		sk = scalarString(v)
	}
	return pk, sk, nil
}

func scalarString(v any) string {
	switch n := normalize(v).(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprint(n)
	}
}
