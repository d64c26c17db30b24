package objstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects how blocks are encoded in objects.
type Codec uint8

const (
	// CodecNone stores the block as is.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 block compression (fast).
	CodecLZ4 Codec = 1
	// CodecZstd uses zstd (better ratio).
	CodecZstd Codec = 2
)

// ErrCorrupt is returned when an object cannot be decoded into a block.
var ErrCorrupt = errors.New("objstore: corrupt object")

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec maps "none", "lz4" or "zstd" to a Codec.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "", "none":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	}
	return 0, fmt.Errorf("objstore: unknown codec %q", s)
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

// encode returns [codec][payload]. Blocks that do not shrink are stored
// with CodecNone.
func encode(c Codec, block []byte) ([]byte, error) {
	var payload []byte
	switch c {
	case CodecNone:
	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(block)))
		n, err := lz4.CompressBlock(block, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("objstore: lz4: %w", err)
		}
		payload = dst[:n] // n == 0: incompressible
	case CodecZstd:
		enc := getZstdEncoder()
		payload = enc.EncodeAll(block, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("objstore: encode: unknown codec %d", c)
	}

	if len(payload) == 0 || len(payload) >= len(block) {
		c, payload = CodecNone, block
	}
	out := make([]byte, 1+len(payload))
	out[0] = byte(c)
	copy(out[1:], payload)
	return out, nil
}

// decode fills block from an encoded object. The decoded length must be
// exactly one block.
func decode(obj, block []byte) error {
	if len(obj) < 1 {
		return fmt.Errorf("%w: empty", ErrCorrupt)
	}
	payload := obj[1:]
	switch Codec(obj[0]) {
	case CodecNone:
		if len(payload) != len(block) {
			return fmt.Errorf("%w: %d bytes, want %d", ErrCorrupt, len(payload), len(block))
		}
		copy(block, payload)
	case CodecLZ4:
		n, err := lz4.UncompressBlock(payload, block)
		if err != nil {
			return fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		if n != len(block) {
			return fmt.Errorf("%w: lz4 %d bytes, want %d", ErrCorrupt, n, len(block))
		}
	case CodecZstd:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(payload, block[:0])
		zstdDecoderPool.Put(dec)
		if err != nil {
			return fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		if len(out) != len(block) {
			return fmt.Errorf("%w: zstd %d bytes, want %d", ErrCorrupt, len(out), len(block))
		}
		copy(block, out) // no-op when DecodeAll filled block in place
	default:
		return fmt.Errorf("%w: unknown codec %d", ErrCorrupt, obj[0])
	}
	return nil
}
