// Package compression provides the codecs used to store resume markdown.
package compression

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

var (
	_ Compressor = ZstdCompressor{}
	_ Compressor = GzipCompressor{}
)
