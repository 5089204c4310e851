package utils

import (
	"bytes"
	"errors"
	"io"
	"unsafe"
)

var ErrLineTooLong = errors.New("line exceeds scanner buffer")

// var asciiSpace = [256]uint8{'\t': 1, '\n': 1, '\v': 1, '\f': 1, '\r': 1, ' ': 1}
const SPACE_MASK = 1<<9 | 1<<10 | 1<<11 | 1<<12 | 1<<13 | 1<<32

func isByteSpace(b byte) bool {
	return ((SPACE_MASK & (1 << b)) != 0)
}

// ASCII only, no re-allocation. Fields point into byteBuff, so they are only valid until it is reused.
// Returns the number of fields found; only the first len(fieldBuff) of them are stored.
func FastFields(fieldBuff []string, byteBuff []byte) (count int) {
	i := 0
	for {
		for i < len(byteBuff) && isByteSpace(byteBuff[i]) {
			i++
		}
		if i == len(byteBuff) {
			return count
		}
		fieldStart := i
		for i < len(byteBuff) && !isByteSpace(byteBuff[i]) {
			i++
		}
		if count < len(fieldBuff) {
			b := byteBuff[fieldStart:i]
			fieldBuff[count] = *(*string)(unsafe.Pointer(&b))
		}
		count++
	}
}

// Line scanner with a fixed buffer; lines are returned without the trailing newline.
// The returned slice is only valid until the next call to Scan.
type LineScanner struct {
	Buf   []byte
	Start int // First non-processed byte in buf.
	End   int // End of data in buf.
	r     io.Reader
	err   error
}

func NewLineScanner(r io.Reader, size int) *LineScanner {
	return &LineScanner{Buf: make([]byte, size), r: r}
}

// Returns the next line, or nil at EOF. A non-EOF read error is returned as is.
func (s *LineScanner) Scan() ([]byte, error) {
	for {
		if s.End > s.Start {
			if i := bytes.IndexByte(s.Buf[s.Start:s.End], '\n'); i >= 0 {
				token := s.Buf[s.Start : s.Start+i]
				s.Start += i + 1
				return token, nil
			}
		}
		if s.err != nil {
			if s.End > s.Start { // Last line might end at EOF.
				token := s.Buf[s.Start:s.End]
				s.Start = s.End
				return token, nil
			}
			if s.err == io.EOF {
				return nil, nil
			}
			return nil, s.err
		}
		// Must read more data. Shift data to beginning of buffer first.
		if s.Start > 0 {
			copy(s.Buf, s.Buf[s.Start:s.End])
			s.End -= s.Start
			s.Start = 0
		}
		if s.End == len(s.Buf) {
			return nil, ErrLineTooLong
		}
		var n int
		for loop := 0; ; loop++ {
			n, s.err = s.r.Read(s.Buf[s.End:])
			s.End += n
			if n > 0 || s.err != nil {
				break
			}
			if loop > 100 {
				s.err = io.ErrNoProgress
				break
			}
		}
	}
}
