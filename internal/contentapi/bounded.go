package contentapi

import (
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge: поток превысил допустимый размер.
var ErrTooLarge = errors.New("превышен максимальный размер потока")

// BoundedReader читает не более limit байт. Попытка прочитать больше
// возвращает ErrTooLarge, а не молча обрезает данные.
type BoundedReader struct {
	r       io.Reader
	limit   int64
	read    int64
	onClose func() error
}

// NewBoundedReader оборачивает r ограничением limit байт.
// Если r реализует io.Closer, Close закрывает его.
func NewBoundedReader(r io.Reader, limit int64) *BoundedReader {
	br := &BoundedReader{r: r, limit: limit}
	if c, ok := r.(io.Closer); ok {
		br.onClose = c.Close
	}
	return br
}

func (b *BoundedReader) Read(p []byte) (int, error) {
	if b.read >= b.limit {
		// Проверяем, что за границей действительно есть данные.
		var peek [1]byte
		n, err := b.r.Read(peek[:])
		if n > 0 {
			return 0, fmt.Errorf("%w: больше %d байт", ErrTooLarge, b.limit)
		}
		if err == nil {
			return 0, nil
		}
		return 0, err
	}

	if remaining := b.limit - b.read; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := b.r.Read(p)
	b.read += int64(n)
	return n, err
}

// Close закрывает исходный поток, если он закрываемый.
func (b *BoundedReader) Close() error {
	if b.onClose == nil {
		return nil
	}
	return b.onClose()
}
