package dispatcher

import (
	"strconv"

	"github.com/lKGreat/cyscaledb/internal/engine"
	"github.com/lKGreat/cyscaledb/internal/mysqlwire"
)

// wireType is the (column_length, mysql_type_code) pair spec.md §4.6's
// type-mapping table assigns to each engine.ColumnType.
type wireType struct {
	length uint32
	code   mysqlwire.ColumnType
}

var columnWireTypes = map[engine.ColumnType]wireType{
	engine.ColInt:      {11, mysqlwire.TypeLong},
	engine.ColBigInt:   {20, mysqlwire.TypeLongLong},
	engine.ColFloat:    {12, mysqlwire.TypeFloat},
	engine.ColDouble:   {22, mysqlwire.TypeDouble},
	engine.ColDecimal:  {65, mysqlwire.TypeNewDecimal},
	engine.ColVarChar:  {65535, mysqlwire.TypeVarString},
	engine.ColText:     {65535, mysqlwire.TypeBlob},
	engine.ColDate:     {10, mysqlwire.TypeDate},
	engine.ColDateTime: {19, mysqlwire.TypeDateTime},
	engine.ColTime:     {10, mysqlwire.TypeString},
	engine.ColBoolean:  {1, mysqlwire.TypeTiny},
}

// wireTypeFor looks up the column_length/type_code pair, defaulting to
// the VarChar mapping for any ColumnType the table doesn't list.
func wireTypeFor(t engine.ColumnType) wireType {
	if w, ok := columnWireTypes[t]; ok {
		return w
	}
	return columnWireTypes[engine.ColVarChar]
}

// formatValue renders a DataValue as the length-encoded UTF-8 text the
// text protocol sends for every column value (spec.md §4.6's format
// table: DateTime/Date/Time use their canonical layout, Float uses
// "G9" (float32 round-trip precision) and Double uses "G17" (float64
// round-trip precision), Boolean is "0"/"1"). colType disambiguates
// Float from Double since engine.DataValue stores both as float64.
func formatValue(v engine.DataValue, colType engine.ColumnType) (text string, isNull bool) {
	switch v.Kind {
	case engine.KindNull:
		return "", true
	case engine.KindInt:
		return strconv.FormatInt(v.Int, 10), false
	case engine.KindFloat:
		if colType == engine.ColFloat {
			return strconv.FormatFloat(v.Float, 'g', 9, 32), false
		}
		return strconv.FormatFloat(v.Float, 'g', 17, 64), false
	case engine.KindDecimal:
		return v.Decimal.String(), false
	case engine.KindBool:
		if v.Bool {
			return "1", false
		}
		return "0", false
	case engine.KindDate, engine.KindDateTime, engine.KindTime:
		if v.Text != "" {
			return v.Text, false
		}
		return v.Str, false
	case engine.KindString:
		return v.Str, false
	default:
		return v.Str, false
	}
}
