package streamio

import (
	"compress/zlib"
	"io"
	"sync"
)

var zlibWriterPool = sync.Pool{
	New: func() any {
		return zlib.NewWriter(io.Discard)
	},
}

// GetZlibWriter returns a *zlib.Writer managed by a sync.Pool, reset to
// write into w.
//
// After use, the writer should be returned via PutZlibWriter. Callers
// must still call Close themselves before doing so: Reset discards any
// unflushed state but does not write a final block.
func GetZlibWriter(w io.Writer) *zlib.Writer {
	zw := zlibWriterPool.Get().(*zlib.Writer)
	zw.Reset(w)
	return zw
}

// PutZlibWriter returns zw to its sync.Pool.
func PutZlibWriter(zw *zlib.Writer) {
	zlibWriterPool.Put(zw)
}

var zlibReaderPool sync.Pool

// ZlibReader wraps the io.ReadCloser zlib.NewReader returns, pooled via
// the Resetter interface compress/zlib's reader implements internally.
type ZlibReader struct {
	Reader io.ReadCloser
}

// GetZlibReader returns a ZlibReader decompressing r, reusing a pooled
// zlib reader when one is available.
func GetZlibReader(r io.Reader) (*ZlibReader, error) {
	if v := zlibReaderPool.Get(); v != nil {
		if resetter, ok := v.(zlib.Resetter); ok {
			if err := resetter.Reset(r, nil); err == nil {
				return &ZlibReader{Reader: v.(io.ReadCloser)}, nil
			}
		}
	}
	rc, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &ZlibReader{Reader: rc}, nil
}

// PutZlibReader closes and returns zr's reader to its sync.Pool.
func PutZlibReader(zr *ZlibReader) {
	if zr == nil || zr.Reader == nil {
		return
	}
	_ = zr.Reader.Close()
	zlibReaderPool.Put(zr.Reader)
}
