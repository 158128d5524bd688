package overflow

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ashpect/tiercache/pkg/cache"
	"github.com/ashpect/tiercache/pkg/codec"
)

var (
	ErrCorrupt = errors.New("overflow: corrupt record")
	ErrClosed  = errors.New("overflow: store closed")
)

// Record field numbers. The layout is protobuf wire format so it can be read
// by any protobuf decoder given the matching message definition:
//
//	message Record {
//	  bytes key        = 1;
//	  int64 created_at = 2; // unix nanoseconds
//	  int64 expires_at = 3; // unix nanoseconds
//	  bytes payload    = 4;
//	}
const (
	fieldKey       protowire.Number = 1
	fieldCreatedAt protowire.Number = 2
	fieldExpiresAt protowire.Number = 3
	fieldPayload   protowire.Number = 4
)

type record struct {
	key       []byte
	createdAt int64
	expiresAt int64
	payload   []byte
}

func encodeEntry[K ~string, V any](c codec.Codec[V], e *cache.Entry[K, V]) ([]byte, error) {
	payload, err := c.Marshal(e.Payload())
	if err != nil {
		return nil, fmt.Errorf("overflow: encode payload of %q: %w", string(e.Key()), err)
	}
	key := e.Key()
	buf := make([]byte, 0, len(key)+len(payload)+32)
	buf = protowire.AppendTag(buf, fieldKey, protowire.BytesType)
	buf = protowire.AppendString(buf, string(key))
	buf = protowire.AppendTag(buf, fieldCreatedAt, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.CreatedAt().UnixNano()))
	buf = protowire.AppendTag(buf, fieldExpiresAt, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.ExpiresAt().UnixNano()))
	buf = protowire.AppendTag(buf, fieldPayload, protowire.BytesType)
	buf = protowire.AppendBytes(buf, payload)
	return buf, nil
}

func decodeEntry[K ~string, V any](c codec.Codec[V], data []byte) (*cache.Entry[K, V], error) {
	r, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}
	payload, err := c.Unmarshal(r.payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload of %q: %v", ErrCorrupt, r.key, err)
	}
	e, err := cache.RestoreEntry(K(r.key), payload, time.Unix(0, r.createdAt), time.Unix(0, r.expiresAt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return e, nil
}

// decodeRecord parses a record, skipping unknown fields.
func decodeRecord(data []byte) (record, error) {
	var r record
	var seenKey, seenExpiry bool
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return r, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldKey && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return r, fmt.Errorf("%w: key: %v", ErrCorrupt, protowire.ParseError(m))
			}
			r.key = append([]byte(nil), v...)
			seenKey = true
			n = m
		case num == fieldCreatedAt && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return r, fmt.Errorf("%w: created_at: %v", ErrCorrupt, protowire.ParseError(m))
			}
			r.createdAt = int64(v)
			n = m
		case num == fieldExpiresAt && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return r, fmt.Errorf("%w: expires_at: %v", ErrCorrupt, protowire.ParseError(m))
			}
			r.expiresAt = int64(v)
			seenExpiry = true
			n = m
		case num == fieldPayload && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return r, fmt.Errorf("%w: payload: %v", ErrCorrupt, protowire.ParseError(m))
			}
			r.payload = append([]byte{}, v...)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return r, fmt.Errorf("%w: field %d: %v", ErrCorrupt, num, protowire.ParseError(n))
			}
		}
		data = data[n:]
	}
	if !seenKey || !seenExpiry {
		return r, fmt.Errorf("%w: missing key or expiry", ErrCorrupt)
	}
	return r, nil
}

// recordExpiry reads only the expiry of an encoded record.
func recordExpiry(data []byte) (time.Time, error) {
	r, err := decodeRecord(data)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, r.expiresAt), nil
}
