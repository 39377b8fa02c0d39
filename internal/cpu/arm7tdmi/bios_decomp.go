package arm7tdmi

import "github.com/oskale/goadvance/internal/bus"

// every BIOS decompression routine shares the same 4-byte header: byte
// 0's low nibble is the compression type (ignored here, since dispatch
// already picked the routine from the SWI number), and bytes 1-3 are
// the little-endian decompressed size.
func decompHeaderSize(mem Memory, src uint32) uint32 {
	return mem.Read32(src, bus.S) >> 8
}

// lz77Decompress implements LZ77UnComp: a literal/back-reference
// stream selected 8 tokens at a time by a flag byte's bits, MSB first.
func (h *hleState) lz77Decompress() {
	c := h.cpu
	src, dst := c.r[0], c.r[1]
	size := decompHeaderSize(c.mem, src)

	srcPos := src + 4
	out := make([]byte, 0, size)

	for uint32(len(out)) < size {
		flags := c.mem.Read8(srcPos, bus.S)
		srcPos++
		for bitIdx := 7; bitIdx >= 0 && uint32(len(out)) < size; bitIdx-- {
			if flags&(1<<uint(bitIdx)) == 0 {
				out = append(out, c.mem.Read8(srcPos, bus.S))
				srcPos++
				continue
			}
			b1 := c.mem.Read8(srcPos, bus.S)
			b2 := c.mem.Read8(srcPos+1, bus.S)
			srcPos += 2
			length := int(b1>>4) + 3
			disp := int(uint16(b1&0xF)<<8|uint16(b2)) + 1
			for k := 0; k < length && uint32(len(out)) < size; k++ {
				out = append(out, out[len(out)-disp])
			}
		}
	}
	writeBytes(c.mem, dst, out)
}

// rleDecompress implements RLUnComp: each block is either a literal run
// (flag bit7=0, length = (flag&0x7F)+1 raw bytes follow) or a repeated
// byte run (flag bit7=1, length = (flag&0x7F)+3, one byte value follows).
func (h *hleState) rleDecompress() {
	c := h.cpu
	src, dst := c.r[0], c.r[1]
	size := decompHeaderSize(c.mem, src)

	srcPos := src + 4
	out := make([]byte, 0, size)
	for uint32(len(out)) < size {
		flag := c.mem.Read8(srcPos, bus.S)
		srcPos++
		if flag&0x80 == 0 {
			length := int(flag&0x7F) + 1
			for i := 0; i < length; i++ {
				out = append(out, c.mem.Read8(srcPos, bus.S))
				srcPos++
			}
		} else {
			length := int(flag&0x7F) + 3
			value := c.mem.Read8(srcPos, bus.S)
			srcPos++
			for i := 0; i < length; i++ {
				out = append(out, value)
			}
		}
	}
	writeBytes(c.mem, dst, out)
}

// diffDecompress implements Diff8bitUnFilter: each output byte is the
// running sum of the input stream, the standard delta-filter inverse.
func (h *hleState) diffDecompress() {
	c := h.cpu
	src, dst := c.r[0], c.r[1]
	size := decompHeaderSize(c.mem, src)

	var acc byte
	out := make([]byte, 0, size)
	for i := uint32(0); i < size; i++ {
		acc += c.mem.Read8(src+4+i, bus.S)
		out = append(out, acc)
	}
	writeBytes(c.mem, dst, out)
}

// huffmanDecompress implements HuffUnComp: a binary tree (serialized as
// node bytes, each either a leaf value or an offset to its two
// children) walked one bit at a time from a packed bitstream, 4 or
// 8 bits of symbol width per the header's low nibble.
func (h *hleState) huffmanDecompress() {
	c := h.cpu
	src, dst := c.r[0], c.r[1]
	header := c.mem.Read32(src, bus.S)
	size := header >> 8
	dataBits := header & 0xF
	if dataBits == 0 {
		dataBits = 8
	}

	treeSize := uint32(c.mem.Read8(src+4, bus.S))
	treeStart := src + 5
	treeEnd := treeStart + treeSize*2

	bitPos := treeEnd
	var bitBuf uint32
	var bitsAvail uint

	nextBit := func() uint32 {
		if bitsAvail == 0 {
			bitBuf = c.mem.Read32(bitPos, bus.S)
			bitPos += 4
			bitsAvail = 32
		}
		bitsAvail--
		bit := (bitBuf >> 31) & 1
		bitBuf <<= 1
		return bit
	}

	out := make([]byte, 0, size)
	var symbolAcc uint32
	var symbolBits uint32

	root := treeStart
	node := root
	for uint32(len(out)) < size {
		nodeByte := c.mem.Read8(node, bus.S)
		offset := uint32(nodeByte&0x3F) + 1

		var childBase uint32
		if node == root {
			childBase = root + 1
		} else {
			childBase = (node &^ 1) + offset*2
		}

		bitVal := nextBit()
		var childAddr uint32
		var leaf bool
		if bitVal == 0 {
			childAddr = childBase
			leaf = nodeByte&0x80 != 0
		} else {
			childAddr = childBase + 1
			leaf = nodeByte&0x40 != 0
		}

		if leaf {
			val := uint32(c.mem.Read8(childAddr, bus.S))
			symbolAcc |= val << symbolBits
			symbolBits += dataBits
			node = root
			if symbolBits >= 8 {
				out = append(out, byte(symbolAcc&0xFF))
				symbolAcc >>= 8
				symbolBits -= 8
			}
		} else {
			node = childAddr
		}
	}
	writeBytes(c.mem, dst, out)
}

func writeBytes(mem Memory, dst uint32, data []byte) {
	for i, b := range data {
		mem.Write8(dst+uint32(i), b, bus.S)
	}
}
