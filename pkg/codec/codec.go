// Package codec turns cache payloads into bytes for the overflow tier and back.
package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Codec is the serialize/deserialize capability a payload type needs before
// its entries can be spilled to disk.
type Codec[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

// JSON encodes payloads with encoding/json.
type JSON[V any] struct{}

func (JSON[V]) Marshal(v V) ([]byte, error) { return json.Marshal(v) }

func (JSON[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("codec: json: %w", err)
	}
	return v, nil
}

// Bytes passes raw payloads through, copying on the way in and out.
type Bytes struct{}

func (Bytes) Marshal(v []byte) ([]byte, error) { return append([]byte(nil), v...), nil }

func (Bytes) Unmarshal(data []byte) ([]byte, error) { return append([]byte{}, data...), nil }

type String struct{}

func (String) Marshal(v string) ([]byte, error) { return []byte(v), nil }

func (String) Unmarshal(data []byte) (string, error) { return string(data), nil }

// Proto encodes generated protobuf messages. M is the message pointer type.
type Proto[M proto.Message] struct{}

func (Proto[M]) Marshal(m M) ([]byte, error) {
	return proto.Marshal(m)
}

func (Proto[M]) Unmarshal(data []byte) (M, error) {
	var zero M
	m, ok := zero.ProtoReflect().New().Interface().(M)
	if !ok {
		return zero, fmt.Errorf("codec: proto: cannot instantiate %T", zero)
	}
	if err := proto.Unmarshal(data, m); err != nil {
		return zero, fmt.Errorf("codec: proto: %w", err)
	}
	return m, nil
}
