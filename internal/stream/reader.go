// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
)

// DefaultReadSize is the buffer size used for each read from the body.
const DefaultReadSize = 4096

// DeliveryFunc receives each chunk of bytes as it arrives from the network.
// The slice is owned by the callee.
type DeliveryFunc func(p []byte)

// Reader pumps a response body into a DeliveryFunc, one Read per delivery.
// Deliveries are passed through as-is; line splitting is the Decoder's job.
type Reader struct {
	r    io.Reader
	buf  []byte
	read int64
}

// NewReader creates a reader with the given read size (DefaultReadSize if <= 0).
func NewReader(r io.Reader, size int) *Reader {
	if size <= 0 {
		size = DefaultReadSize
	}
	return &Reader{
		r:   r,
		buf: make([]byte, size),
	}
}

// Process reads until EOF, calling fn for each non-empty read.
// Blocks until the body is exhausted, a read fails, or ctx is cancelled.
func (s *Reader) Process(ctx context.Context, fn DeliveryFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := s.r.Read(s.buf)
		if n > 0 {
			s.read += int64(n)
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			fn(chunk)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}

// BytesRead returns the total number of bytes delivered so far.
func (s *Reader) BytesRead() int64 {
	return s.read
}
