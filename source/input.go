package source

import "io"

// Input supplies document bytes on demand. Read returns a chunk of bytes
// starting at offset; an empty chunk means offset is at or past the end.
// Implementations must return the same bytes for the same offset for the
// duration of a parse.
type Input interface {
	Read(offset int) []byte
}

// Bytes is an in-memory Input.
type Bytes []byte

func (b Bytes) Read(offset int) []byte {
	if offset < 0 || offset >= len(b) {
		return nil
	}
	return b[offset:]
}

func String(s string) Input {
	return Bytes(s)
}

const defaultChunkSize = 4096

type readerAtInput struct {
	r     io.ReaderAt
	size  int64
	chunk int
}

// ReaderAt adapts an io.ReaderAt of known size, reading in fixed chunks.
func ReaderAt(r io.ReaderAt, size int64) Input {
	return &readerAtInput{r: r, size: size, chunk: defaultChunkSize}
}

func (in *readerAtInput) Read(offset int) []byte {
	if offset < 0 || int64(offset) >= in.size {
		return nil
	}
	n := int64(in.chunk)
	if rest := in.size - int64(offset); rest < n {
		n = rest
	}
	buf := make([]byte, n)
	read, err := in.r.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil
	}
	return buf[:read]
}

// Reader gives byte-level random access over an Input, caching the most
// recently read chunk.
type Reader struct {
	in         Input
	chunk      []byte
	chunkStart int
	eof        int
}

func NewReader(in Input) *Reader {
	return &Reader{in: in, eof: -1}
}

// ByteAt returns the byte at offset, or false at the end of input.
func (r *Reader) ByteAt(offset int) (byte, bool) {
	if offset >= r.chunkStart && offset < r.chunkStart+len(r.chunk) {
		return r.chunk[offset-r.chunkStart], true
	}
	if offset < 0 || (r.eof >= 0 && offset >= r.eof) {
		return 0, false
	}
	c := r.in.Read(offset)
	if len(c) == 0 {
		if r.eof < 0 || offset < r.eof {
			r.eof = offset
		}
		return 0, false
	}
	r.chunk, r.chunkStart = c, offset
	return c[0], true
}

// Slice copies the bytes in [start, end), stopping early at the end of input.
func (r *Reader) Slice(start, end int) []byte {
	out := make([]byte, 0, max(end-start, 0))
	for off := start; off < end; {
		c := r.in.Read(off)
		if len(c) == 0 {
			break
		}
		if n := end - off; len(c) > n {
			c = c[:n]
		}
		out = append(out, c...)
		off += len(c)
	}
	return out
}

// ReadAll returns every byte of in.
func ReadAll(in Input) []byte {
	if b, ok := in.(Bytes); ok {
		return b
	}
	var out []byte
	for {
		c := in.Read(len(out))
		if len(c) == 0 {
			return out
		}
		out = append(out, c...)
	}
}
