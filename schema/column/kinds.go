package column

// A Kind identifies the logical data type a column carries. The SQL type
// name it renders to is dialect dependent and, for parameterised kinds
// such as TypeVarchar and TypeNumeric, depends on the column as well.
type Kind int

const (
	TypeInvalid Kind = iota
	TypeVarchar
	TypeText
	TypeUUID
	TypeInteger
	TypeSmallInt
	TypeBigInt
	TypeSerial
	TypeBigSerial
	TypeTimestamp
	TypeTimestamptz
	TypeDate
	TypeTime
	TypeInterval
	TypeBoolean
	TypeNumeric
	TypeReal
	TypeDoublePrecision
	TypeJSON
	TypeJSONB
	TypeBytea
	TypeArray
	TypeForeignKey
)

var kindNames = [...]string{
	TypeInvalid:         "invalid",
	TypeVarchar:         "varchar",
	TypeText:            "text",
	TypeUUID:            "uuid",
	TypeInteger:         "integer",
	TypeSmallInt:        "smallint",
	TypeBigInt:          "bigint",
	TypeSerial:          "serial",
	TypeBigSerial:       "bigserial",
	TypeTimestamp:       "timestamp",
	TypeTimestamptz:     "timestamptz",
	TypeDate:            "date",
	TypeTime:            "time",
	TypeInterval:        "interval",
	TypeBoolean:         "boolean",
	TypeNumeric:         "numeric",
	TypeReal:            "real",
	TypeDoublePrecision: "double_precision",
	TypeJSON:            "json",
	TypeJSONB:           "jsonb",
	TypeBytea:           "bytea",
	TypeArray:           "array",
	TypeForeignKey:      "foreign_key",
}

func (k Kind) String() string {
	if k < TypeInvalid || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// Numeric reports whether the kind stores an integer or floating value.
func (k Kind) Numeric() bool {
	switch k {
	case TypeInteger, TypeSmallInt, TypeBigInt, TypeSerial, TypeBigSerial,
		TypeNumeric, TypeReal, TypeDoublePrecision:
		return true
	}
	return false
}

// Temporal reports whether the kind stores a date or time value.
func (k Kind) Temporal() bool {
	switch k {
	case TypeTimestamp, TypeTimestamptz, TypeDate, TypeTime:
		return true
	}
	return false
}

// TransportSafe reports whether values of this kind survive the string
// round trip used by aggregated relationship readouts. Structured kinds
// such as TypeJSON and TypeJSONB do not.
func (k Kind) TransportSafe() bool {
	switch k {
	case TypeVarchar, TypeText, TypeUUID,
		TypeInteger, TypeSmallInt, TypeBigInt, TypeSerial, TypeBigSerial:
		return true
	}
	return false
}

// aliased maps the auto-increment kinds to the plain integer kind used
// when another column must mirror their stored representation.
func (k Kind) aliased() Kind {
	switch k {
	case TypeSerial:
		return TypeInteger
	case TypeBigSerial:
		return TypeBigInt
	}
	return k
}
