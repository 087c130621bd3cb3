package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Key identifies a store entry. It is an ordered tuple of scalar parts; a
// single scalar is a tuple of length one. Keys compare positionally, so
// ("a", "b") and ("b", "a") are different keys.
type Key struct {
	parts   []any
	encoded string
}

// StringKey returns a single part key.
func StringKey(s string) Key {
	k, _ := NewKey(s)
	return k
}

// NewKey builds a key from scalar parts: strings, booleans, integers,
// floats and byte slices.
func NewKey(parts ...any) (Key, error) {
	if len(parts) == 0 {
		return Key{}, fmt.Errorf("%w: key needs at least one part", ErrInvalidKey)
	}
	encoded := make([][2]string, 0, len(parts))
	copied := make([]any, 0, len(parts))
	for i, part := range parts {
		tag, value, err := encodePart(part)
		if err != nil {
			return Key{}, fmt.Errorf("%w: part %d: %v", ErrInvalidKey, i, err)
		}
		encoded = append(encoded, [2]string{tag, value})
		if b, ok := part.([]byte); ok {
			part = append([]byte(nil), b...)
		}
		copied = append(copied, part)
	}
	raw, err := json.Marshal(encoded)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return Key{parts: copied, encoded: string(raw)}, nil
}

// MustKey is NewKey for keys known to be valid at compile time.
func MustKey(parts ...any) Key {
	k, err := NewKey(parts...)
	if err != nil {
		panic(err)
	}
	return k
}

// Parts returns a copy of the key parts.
func (k Key) Parts() []any {
	return append([]any(nil), k.parts...)
}

// IsZero reports whether the key was never built.
func (k Key) IsZero() bool {
	return k.encoded == ""
}

// String returns the canonical encoding used as the backing map or row key.
func (k Key) String() string {
	return k.encoded
}

// Equal reports whether both keys have the same parts in the same order.
func (k Key) Equal(other Key) bool {
	return k.encoded == other.encoded
}

func encodePart(part any) (tag string, value string, err error) {
	switch v := part.(type) {
	case string:
		return "s", v, nil
	case bool:
		return "b", strconv.FormatBool(v), nil
	case int:
		return "i", strconv.FormatInt(int64(v), 10), nil
	case int8:
		return "i", strconv.FormatInt(int64(v), 10), nil
	case int16:
		return "i", strconv.FormatInt(int64(v), 10), nil
	case int32:
		return "i", strconv.FormatInt(int64(v), 10), nil
	case int64:
		return "i", strconv.FormatInt(v, 10), nil
	case uint:
		return "i", strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return "i", strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return "i", strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return "i", strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return "i", strconv.FormatUint(v, 10), nil
	case float32:
		return "f", strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return "f", strconv.FormatFloat(v, 'g', -1, 64), nil
	case []byte:
		return "y", base64.RawStdEncoding.EncodeToString(v), nil
	case nil:
		return "", "", fmt.Errorf("nil is not a scalar")
	default:
		return "", "", fmt.Errorf("unsupported type %T", part)
	}
}

// flatKey joins the tagged parts into a readable, still positional, string
// for backends that prefer flat keys (e.g. Redis).
func (k Key) flatKey() string {
	var parts [][2]string
	if err := json.Unmarshal([]byte(k.encoded), &parts); err != nil {
		return k.encoded
	}
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(strconv.Quote(p[1]))
	}
	return b.String()
}
