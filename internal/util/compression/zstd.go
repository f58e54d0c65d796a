package compression

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// maxDecodedSize bounds the memory a single stored resume may decode to.
const maxDecodedSize = 8 << 20

// The encoder and decoder are safe for concurrent EncodeAll and DecodeAll
// calls and are shared by every ZstdCompressor.
var zstdCoders = sync.OnceValues(func() (*zstdPair, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize), zstd.WithDecoderConcurrency(0))
	if err != nil {
		encoder.Close()
		return nil, err
	}
	return &zstdPair{encoder: encoder, decoder: decoder}, nil
})

type zstdPair struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

type ZstdCompressor struct{}

func (ZstdCompressor) Compress(data []byte) ([]byte, error) {
	coders, err := zstdCoders()
	if err != nil {
		return nil, err
	}
	return coders.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

func (ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	coders, err := zstdCoders()
	if err != nil {
		return nil, err
	}
	return coders.decoder.DecodeAll(data, nil)
}
