package tablet

// FieldType is the storage type of a column.
type FieldType string

const (
	TypeTinyInt  FieldType = "TINYINT"
	TypeSmallInt FieldType = "SMALLINT"
	TypeInt      FieldType = "INT"
	TypeBigInt   FieldType = "BIGINT"
	TypeLargeInt FieldType = "LARGEINT"
	TypeFloat    FieldType = "FLOAT"
	TypeDouble   FieldType = "DOUBLE"
	TypeDecimal  FieldType = "DECIMAL"
	TypeDate     FieldType = "DATE"
	TypeDateTime FieldType = "DATETIME"
	TypeChar     FieldType = "CHAR"
	TypeVarchar  FieldType = "VARCHAR"
	TypeHLL      FieldType = "HLL"
)

// AggregationMethod describes how a value column is merged for AGG_KEYS
// tablets.
type AggregationMethod string

const (
	AggNone     AggregationMethod = "NONE"
	AggSum      AggregationMethod = "SUM"
	AggMin      AggregationMethod = "MIN"
	AggMax      AggregationMethod = "MAX"
	AggReplace  AggregationMethod = "REPLACE"
	AggHLLUnion AggregationMethod = "HLL_UNION"
)

// ColumnSchema describes one column of a tablet.
type ColumnSchema struct {
	UniqueID            uint32            `json:"unique_id"`
	Name                string            `json:"name"`
	Type                FieldType         `json:"type"`
	IsKey               bool              `json:"is_key"`
	IsNullable          bool              `json:"is_nullable"`
	Length              int32             `json:"length"`
	IndexLength         int32             `json:"index_length"`
	IsBloomFilterColumn bool              `json:"is_bf_column,omitempty"`
	Aggregation         AggregationMethod `json:"aggregation,omitempty"`
	DefaultValue        *string           `json:"default_value,omitempty"`
	Precision           *int32            `json:"precision,omitempty"`
	Frac                *int32            `json:"frac,omitempty"`
}

// TabletSchema is the column layout of a tablet.
type TabletSchema struct {
	Columns            []ColumnSchema `json:"columns"`
	NumRowsPerRowBlock int32          `json:"num_rows_per_row_block"`
}

// NumKeyColumns returns the number of key columns.
func (s *TabletSchema) NumKeyColumns() int {
	n := 0
	for _, c := range s.Columns {
		if c.IsKey {
			n++
		}
	}
	return n
}

// RowSize returns the fixed row footprint: column lengths plus one null bit
// per column, rounded up to whole bytes.
func (s *TabletSchema) RowSize() int {
	size := 0
	for _, c := range s.Columns {
		size += int(c.Length)
	}
	size += (len(s.Columns) + 7) / 8
	return size
}
