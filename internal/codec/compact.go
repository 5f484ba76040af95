package codec

import (
	"encoding/binary"
	"errors"
	"math/bits"
)

var ErrShortInput = errors.New("codec: unexpected end of input")

// EncodeCompact SCALE compact 整数编码
func EncodeCompact(n uint64) []byte {
	switch {
	case n < 1<<6:
		return []byte{byte(n << 2)}
	case n < 1<<14:
		out := make([]byte, 2)
		binary.LittleEndian.PutUint16(out, uint16(n<<2)|0b01)
		return out
	case n < 1<<30:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(n<<2)|0b10)
		return out
	default:
		size := (bits.Len64(n) + 7) / 8
		out := make([]byte, 1+size)
		out[0] = byte((size-4)<<2) | 0b11
		for i := 0; i < size; i++ {
			out[1+i] = byte(n >> (8 * i))
		}
		return out
	}
}

// DecodeCompact 返回解码值和消耗的字节数
func DecodeCompact(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrShortInput
	}
	switch data[0] & 0b11 {
	case 0b00:
		return uint64(data[0] >> 2), 1, nil
	case 0b01:
		if len(data) < 2 {
			return 0, 0, ErrShortInput
		}
		return uint64(binary.LittleEndian.Uint16(data) >> 2), 2, nil
	case 0b10:
		if len(data) < 4 {
			return 0, 0, ErrShortInput
		}
		return uint64(binary.LittleEndian.Uint32(data) >> 2), 4, nil
	default:
		size := int(data[0]>>2) + 4
		if size > 8 {
			return 0, 0, errors.New("codec: compact integer exceeds 64 bits")
		}
		if len(data) < 1+size {
			return 0, 0, ErrShortInput
		}
		var n uint64
		for i := 0; i < size; i++ {
			n |= uint64(data[1+i]) << (8 * i)
		}
		return n, 1 + size, nil
	}
}
