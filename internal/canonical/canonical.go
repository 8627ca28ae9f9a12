// Package canonical computes stable content digests over a sorted-key JSON
// serialization. Every other component keys or fingerprints through it, so
// the encoding must not drift across platforms or map iteration orders.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"crypto/sha256"
	"encoding/hex"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

// floatPrecision is the fixed decimal precision for float encoding.
// Fixed-width formatting removes platform float-formatting drift.
const floatPrecision = 9

// Hash returns the hex SHA-256 digest of the canonical encoding of v.
// Maps encode with lexicographically sorted keys, arrays in given order,
// floats with fixed decimal precision, strings as UTF-8.
func Hash(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// MustHash hashes a value known to be serializable and panics otherwise.
// Reserved for values the caller constructed from already-serialized types.
func MustHash(v any) string {
	h, err := Hash(v)
	if err != nil {
		panic(err)
	}
	return h
}

// Marshal returns the canonical JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	// Round-trip through encoding/json first: this applies struct tags and
	// rejects non-serializable values (channels, funcs, NaN/Inf) up front.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: decode intermediate: %v", domain.ErrSerialization, err)
	}

	var buf bytes.Buffer
	if err := encode(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
		}
		buf.Write(data)
	case json.Number:
		return encodeNumber(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyData, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
			}
			buf.Write(keyData)
			buf.WriteByte(':')
			if err := encode(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: unsupported type %T", domain.ErrSerialization, v)
	}
	return nil
}

// encodeNumber writes integers verbatim and everything else with fixed
// decimal precision, so 0.1+0.2 artifacts and exponent forms cannot leak
// into the digest.
func encodeNumber(buf *bytes.Buffer, n json.Number) error {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		buf.WriteString(s)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("%w: number %q: %v", domain.ErrSerialization, s, err)
	}
	buf.WriteString(strconv.FormatFloat(f, 'f', floatPrecision, 64))
	return nil
}
