// Package fields turns raw source values into the normalized strings and
// leaf hashes that make up an entity's field tree.
package fields

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/merkle"
)

// MaxValueLength bounds a normalized value, in runes. Values are truncated
// before hashing and before disclosure so both sides hash the same string.
const MaxValueLength = 64

// chunkSize keeps each packed chunk strictly below the BN254 scalar modulus.
const chunkSize = fr.Bytes - 1

// ErrEncodingFallback marks a value that could not be encoded and was
// replaced with the empty string.
var ErrEncodingFallback = errors.New("field encoding fell back to empty value")

// Fallback describes one substituted value.
type Fallback struct {
	EntityType models.EntityType
	Slot       models.Slot
	SlotName   string
	Reason     string
	Err        error
}

// FallbackReporter observes encoding fallbacks.
type FallbackReporter interface {
	EncodingFallback(ctx context.Context, f Fallback)
}

// LogReporter logs fallbacks at WARN.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) EncodingFallback(ctx context.Context, f Fallback) {
	if r.Logger == nil {
		return
	}
	r.Logger.WarnContext(ctx, "field encoding fallback",
		"entity_type", f.EntityType,
		"slot", f.Slot,
		"slot_name", f.SlotName,
		"reason", f.Reason,
		"error", f.Err,
	)
}

// Normalize converts a raw value to its canonical string form.
//
// nil becomes "", slices are comma-joined over their non-nil elements,
// maps and structs are JSON encoded. The result is truncated to
// MaxValueLength runes. On failure the returned string is "" and the error
// wraps ErrEncodingFallback.
func Normalize(raw any) (string, error) {
	s, err := stringify(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncodingFallback, err)
	}
	return Truncate(strings.TrimSpace(s)), nil
}

// Truncate cuts s to MaxValueLength runes.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxValueLength {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxValueLength {
			return s[:i]
		}
		n++
	}
	return s
}

func stringify(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		if !utf8.ValidString(v) {
			return "", errors.New("invalid utf-8")
		}
		return v, nil
	case []byte:
		return stringify(string(v))
	case bool:
		return strconv.FormatBool(v), nil
	case json.Number:
		return v.String(), nil
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case fmt.Stringer:
		return v.String(), nil
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "", nil
		}
		return stringify(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			el := rv.Index(i)
			if (el.Kind() == reflect.Interface || el.Kind() == reflect.Pointer) && el.IsNil() {
				continue
			}
			s, err := stringify(el.Interface())
			if err != nil {
				return "", fmt.Errorf("element %d: %w", i, err)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number %v", f)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// Leaf hashes a normalized value: MiMC over its byte length followed by
// 31-byte big-endian chunks, so "" and values of different lengths never
// collide.
func Leaf(value string) merkle.Hash {
	b := []byte(value)
	elems := make([]fr.Element, 0, 1+(len(b)+chunkSize-1)/chunkSize)
	var n fr.Element
	n.SetUint64(uint64(len(b)))
	elems = append(elems, n)
	for off := 0; off < len(b); off += chunkSize {
		end := min(off+chunkSize, len(b))
		var e fr.Element
		e.SetBytes(b[off:end])
		elems = append(elems, e)
	}
	return merkle.HashElements(elems...)
}

// Encoder normalizes raw records into Fields and reports fallbacks.
type Encoder struct {
	reporter FallbackReporter
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithReporter sets where fallbacks are reported.
func WithReporter(r FallbackReporter) Option {
	return func(e *Encoder) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithLogger reports fallbacks to logger at WARN.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Encoder) {
		if logger != nil {
			e.reporter = LogReporter{Logger: logger}
		}
	}
}

func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{reporter: LogReporter{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reporter returns where e reports fallbacks.
func (e *Encoder) Reporter() FallbackReporter { return e.reporter }

// Encode reads every declared slot of schema from values and returns a
// fully populated field set. Missing values become "".
func (e *Encoder) Encode(ctx context.Context, schema *models.Schema, values map[string]any) (*Fields, error) {
	f := New(schema)
	for _, spec := range schema.Slots {
		raw, _ := Lookup(values, spec.Path)
		s, err := Normalize(raw)
		if err != nil {
			e.reporter.EncodingFallback(ctx, Fallback{
				EntityType: schema.Type,
				Slot:       spec.Slot,
				SlotName:   spec.Name,
				Reason:     reasonOf(raw),
				Err:        err,
			})
		}
		if err := f.Set(spec.Slot, s); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func reasonOf(raw any) string {
	switch raw.(type) {
	case string, []byte:
		return "invalid_utf8"
	case float32, float64:
		return "non_finite_number"
	}
	if raw == nil {
		return "unknown"
	}
	return "unencodable_" + reflect.TypeOf(raw).Kind().String()
}

// Lookup resolves a dotted path in nested maps.
func Lookup(values map[string]any, path string) (any, bool) {
	var cur any = values
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
