package sdb

import (
	"hash/crc32"

	"github.com/golang/snappy"
)

// codec compresses and decompresses opaque page payloads. The container
// treats it as a swappable interface. Two implementations ship here:
// snappyCodec, wrapping snappy.Encode/snappy.Decode around a single page's
// worth of bytes, and the passthrough identityCodec.
type codec interface {
	compress(data []byte) []byte
	decompress(data []byte) ([]byte, error)
}

// snappyCodec implements codec using github.com/golang/snappy.
type snappyCodec struct{}

func (snappyCodec) compress(data []byte) []byte {
	return snappy.Encode(nil, data)
}

func (snappyCodec) decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// identityCodec implements codec as a no-op, used when a container is opened
// with UseCompression: false.
type identityCodec struct{}

func (identityCodec) compress(data []byte) []byte {
	return data
}

func (identityCodec) decompress(data []byte) ([]byte, error) {
	return data, nil
}

// crcTable is the CRC-32 (IEEE) table used for every page's checksum.
var crcTable = crc32.MakeTable(crc32.IEEE)

// checksum computes the CRC-32 of stored (possibly compressed) payload bytes.
func checksum(stored []byte) uint32 {
	return crc32.Checksum(stored, crcTable)
}
