package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// headerSize is the size of the length prefix of a frame
const headerSize = 4

// ErrFrameTooLarge is returned by readFrame for a length prefix above the limit
var ErrFrameTooLarge = errors.New("frame too large")

// writeFrame writes a frame to the connection with the format:
// - 4 bytes: data length (uint32, little endian)
// - N bytes: encoded record
// The caller must hold the write lock of the connection.
func writeFrame(conn net.Conn, data []byte) error {
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header, uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads the next non-empty frame from the connection and returns its record.
// io.EOF is returned if the peer closed the connection between two frames.
// A frame longer than maxSize bytes is rejected before its payload is read.
func readFrame(conn net.Conn, maxSize int) ([]byte, error) {
	var header [headerSize]byte
	for {
		if err := readFull(conn, header[:]); err != nil {
			return nil, err
		}

		contentLength := binary.LittleEndian.Uint32(header[:])

		// empty frames carry no record
		if contentLength == 0 {
			continue
		}
		if uint64(contentLength) > uint64(maxSize) {
			return nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrFrameTooLarge, contentLength, maxSize)
		}

		data := make([]byte, contentLength)
		if err := readFull(conn, data); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		return data, nil
	}
}

// readFull reads exactly len(buf) bytes. Timeouts are retried without losing
// the bytes read so far, every other error ends the stream.
func readFull(conn net.Conn, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := conn.Read(buf[read:])
		read += n
		if err == nil || read == len(buf) {
			continue
		}
		if isTimeout(err) {
			// a passed deadline fails every following read, clear it before retrying
			if err := conn.SetReadDeadline(time.Time{}); err != nil {
				return err
			}
			continue
		}
		if read > 0 && errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// isTimeout reports whether err is a transient timeout
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
