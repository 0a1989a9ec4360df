package tiered

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
)

// CompressionCodec names how slot bodies are packed before they reach a backend.
type CompressionCodec string

const (
	CompressionNone CompressionCodec = "none"
	CompressionGzip CompressionCodec = "gzip"
)

// A packed slot body is compressMagic, one codec tag byte, then the
// compressed record. Bodies without the magic were written unpacked.
var compressMagic = []byte("CMP1")

const gzipTag byte = 'g'

var (
	ErrValueTooLarge      = errors.New("tiered: value exceeds max size")
	ErrUnsupportedCodec   = errors.New("tiered: unsupported compression codec")
	ErrCorruptCompression = errors.New("tiered: corrupt compressed payload")
)

// packSlot enforces the size limit on the record body and, for gzip, on the
// packed body the backend will hold.
func packSlot(codec CompressionCodec, max int, body []byte) ([]byte, error) {
	if err := checkSlotSize(body, max); err != nil {
		return nil, err
	}
	switch codec {
	case CompressionNone, "":
		return body, nil
	case CompressionGzip:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, codec)
	}

	var buf bytes.Buffer
	buf.Write(compressMagic)
	buf.WriteByte(gzipTag)
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	if err := checkSlotSize(buf.Bytes(), max); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unpackSlot(in []byte) ([]byte, error) {
	tag, packed, ok := splitEnvelope(in, compressMagic)
	if !ok {
		return in, nil
	}
	if tag != gzipTag {
		return nil, fmt.Errorf("%w: tag %q", ErrUnsupportedCodec, tag)
	}
	zr, err := gzip.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, ErrCorruptCompression
	}
	defer zr.Close()
	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, ErrCorruptCompression
	}
	return body, nil
}

func checkSlotSize(body []byte, max int) error {
	if max > 0 && len(body) > max {
		return fmt.Errorf("%w: %d > %d bytes", ErrValueTooLarge, len(body), max)
	}
	return nil
}

// splitEnvelope returns the header byte following magic and the rest of in.
// ok is false when in does not carry the envelope.
func splitEnvelope(in, magic []byte) (header byte, rest []byte, ok bool) {
	if len(in) <= len(magic) || !bytes.HasPrefix(in, magic) {
		return 0, nil, false
	}
	return in[len(magic)], in[len(magic)+1:], true
}
