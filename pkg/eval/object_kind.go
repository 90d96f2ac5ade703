// pkg/eval/object_kind.go
package eval

// ObjectKind represents the type of an object using an enum for faster comparisons.
type ObjectKind uint8

const (
	KindInvalid ObjectKind = iota
	KindInteger
	KindReturnValue
	KindError
)

func (k ObjectKind) String() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindReturnValue:
		return "RETURN_VALUE"
	case KindError:
		return "ERROR"
	default:
		return "INVALID"
	}
}

// Integer cache for small integers (-128 to 127)
const (
	minCachedInt = -128
	maxCachedInt = 127
	intCacheSize = maxCachedInt - minCachedInt + 1
)

var (
	intCache [intCacheSize]*Integer

	ZERO *Integer
	ONE  *Integer
)

func init() {
	for i := 0; i < intCacheSize; i++ {
		intCache[i] = &Integer{Value: int32(i + minCachedInt)}
	}

	ZERO = NewInteger(0)
	ONE = NewInteger(1)
}

// NewInteger returns a cached integer for small values or allocates a new one.
func NewInteger(value int32) *Integer {
	if value >= minCachedInt && value <= maxCachedInt {
		return intCache[int(value)-minCachedInt]
	}
	return &Integer{Value: value}
}

func nativeBoolToInteger(input bool) *Integer {
	if input {
		return ONE
	}
	return ZERO
}
