// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how an object body is compressed on disk. The
// tag is recorded in the object's info record; the numeric values are
// part of the on-disk format.
type Compression uint8

const (
	// CompressionNone stores the body as-is.
	CompressionNone Compression = 0

	// CompressionLZ4 is LZ4 block compression.
	CompressionLZ4 Compression = 1

	// CompressionZstd is zstd at the default level.
	CompressionZstd Compression = 2

	// CompressionAuto is a store policy, never a recorded tag: the
	// store picks one of the above per object.
	CompressionAuto Compression = 255
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	case CompressionAuto:
		return "auto"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as written in
// configuration.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	case "auto", "":
		return CompressionAuto, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// errIncompressible is returned when compressed output is not smaller
// than its input. Callers fall back to CompressionNone.
var errIncompressible = errors.New("data is incompressible")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("store: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("store: zstd decoder initialization failed: " + err.Error())
	}
}

// compress encodes data with the given algorithm. For
// CompressionAuto it chooses one from mimeType and a probe of the
// data, and always succeeds: incompressible data is returned as-is
// with CompressionNone.
func compress(data []byte, compression Compression, mimeType string) ([]byte, Compression, error) {
	if compression == CompressionAuto {
		compression = selectCompression(data, mimeType)
	}
	var (
		out []byte
		err error
	)
	switch compression {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionLZ4:
		out, err = compressLZ4(data)
	case CompressionZstd:
		out, err = compressZstd(data)
	default:
		return nil, 0, fmt.Errorf("unsupported compression %s", compression)
	}
	if errors.Is(err, errIncompressible) {
		return data, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return out, compression, nil
}

// decompress reverses compress. size is the exact uncompressed length
// recorded in the object's info and is verified.
func decompress(data []byte, compression Compression, size int64) ([]byte, error) {
	switch compression {
	case CompressionNone:
		if int64(len(data)) != size {
			return nil, fmt.Errorf("uncompressed body is %d bytes, expected %d", len(data), size)
		}
		return data, nil
	case CompressionLZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(data, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if int64(read) != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return destination, nil
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if int64(len(result)) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", compression)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

// selectCompression picks zstd for text-like MIME types. Otherwise it
// probes with zstd: a ratio of at least 1.5 selects zstd, at least 1.1
// selects the faster LZ4, and anything less is stored uncompressed.
func selectCompression(data []byte, mimeType string) Compression {
	base, _, _ := strings.Cut(mimeType, ";")
	if strings.HasPrefix(base, "text/") {
		return CompressionZstd
	}
	switch base {
	case "application/json", "application/x-ndjson", "application/xml", "application/cbor":
		return CompressionZstd
	case "image/png", "image/jpeg", "image/gif", "image/webp",
		"application/zip", "application/x-gzip", "application/zstd", "video/mp4":
		return CompressionNone
	}

	if len(data) == 0 {
		return CompressionNone
	}
	ratio := float64(len(data)) / float64(len(zstdEncoder.EncodeAll(data, nil)))
	switch {
	case ratio >= 1.5:
		return CompressionZstd
	case ratio >= 1.1:
		return CompressionLZ4
	default:
		return CompressionNone
	}
}
