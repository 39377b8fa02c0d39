package ppu

// renderBackgrounds fills `layers[bg]` with a 15-bit BGR555 color and
// `opaque[bg]` with whether that pixel is not the backdrop (palette
// index 0), for every background DISPCNT enables in the current mode.
func (p *PPU) renderBackgrounds(y int, mode uint8, layers *[4][240]uint16, opaque *[4][240]bool) {
	enable := p.mmio[offDISPCNT+1]

	switch mode {
	case 0: // four text backgrounds
		for bg := 0; bg < 4; bg++ {
			if enable&(1<<bg) != 0 {
				p.renderText(bg, y, &layers[bg], &opaque[bg])
			}
		}
	case 1: // BG0/1 text, BG2 affine
		if enable&0x1 != 0 {
			p.renderText(0, y, &layers[0], &opaque[0])
		}
		if enable&0x2 != 0 {
			p.renderText(1, y, &layers[1], &opaque[1])
		}
		if enable&0x4 != 0 {
			p.renderAffine(2, y, &layers[2], &opaque[2])
			p.advanceAffineReferencePoint(2)
		}
	case 2: // BG2/3 affine
		if enable&0x4 != 0 {
			p.renderAffine(2, y, &layers[2], &opaque[2])
			p.advanceAffineReferencePoint(2)
		}
		if enable&0x8 != 0 {
			p.renderAffine(3, y, &layers[3], &opaque[3])
			p.advanceAffineReferencePoint(3)
		}
	case 3:
		p.renderBitmapDirect(y, &layers[2], &opaque[2])
	case 4:
		p.renderBitmapPaletted(y, &layers[2], &opaque[2])
	case 5:
		p.renderBitmapSmall(y, &layers[2], &opaque[2])
	}
}

// advanceAffineReferencePoint increments bg's running reference point by
// its bgpb/bgpd coefficients, matching the hardware's per-scanline
// accumulation; called once per line for each affine background actually
// rendered, after that line's sampling.
func (p *PPU) advanceAffineReferencePoint(bg int) {
	idx, base := 0, offBG2PB
	if bg == 3 {
		idx, base = 1, offBG3PB
	}
	pb := int32(int16(p.readHalf(base)))
	pd := int32(int16(p.readHalf(base + 4)))
	p.bgRefCurrent[idx][0] += pb
	p.bgRefCurrent[idx][1] += pd
}

type bgControl struct {
	priority    uint8
	charBase    uint32
	mosaic      bool
	colorMode8  bool // true = 256-color, false = 16-color
	screenBase  uint32
	wrap        bool // affine overflow wrap
	screenSize  uint8
}

// mosaicSizes decodes the MOSAIC register's four 4-bit fields (each
// encoded as block size minus one) into background and sprite mosaic
// block widths/heights, in pixels/scanlines.
func (p *PPU) mosaicSizes() (bgH, bgV, objH, objV int) {
	v := p.readHalf(offMOSAIC)
	bgH = int(v&0xF) + 1
	bgV = int(v>>4&0xF) + 1
	objH = int(v>>8&0xF) + 1
	objV = int(v>>12&0xF) + 1
	return
}

func (p *PPU) bgControlFor(bg int) bgControl {
	off := offBG0CNT + 2*bg
	cnt := p.readHalf(off)
	return bgControl{
		priority:   uint8(cnt & 0x3),
		charBase:   uint32(cnt>>2&0x3) * 0x4000,
		mosaic:     cnt&0x40 != 0,
		colorMode8: cnt&0x80 != 0,
		screenBase: uint32(cnt>>8&0x1F) * 0x800,
		wrap:       cnt&0x2000 != 0,
		screenSize: uint8(cnt >> 14 & 0x3),
	}
}

// renderText renders one scanline of a text-mode background: a tile map
// of up to 64x64 tiles (depending on screenSize), each an 8x8 cell of
// either 4bpp or 8bpp pixels.
func (p *PPU) renderText(bg, y int, layer *[240]uint16, opaque *[240]bool) {
	ctl := p.bgControlFor(bg)
	hofs := int(p.readHalf(offBG0HOFS+4*bg)) & 0x1FF
	vofs := int(p.readHalf(offBG0VOFS+4*bg)) & 0x1FF

	sampleY := y
	mosaicH := 1
	if ctl.mosaic {
		h, v, _, _ := p.mosaicSizes()
		mosaicH = h
		sampleY -= y % v
	}

	mapY := (sampleY + vofs) & mapHeightMask(ctl.screenSize)
	tileRow := mapY / 8
	pixelRow := mapY % 8

	vram := p.mem.VRAM()
	pal := p.mem.Palette()

	for x := 0; x < 240; x++ {
		sampleX := x
		if ctl.mosaic {
			sampleX -= x % mosaicH
		}
		mapX := (sampleX + hofs) & mapWidthMask(ctl.screenSize)
		tileCol := mapX / 8
		pixelCol := mapX % 8

		screenBlock := screenBlockFor(ctl.screenSize, tileCol, tileRow)
		entryAddr := ctl.screenBase + screenBlock*0x800 + uint32((tileRow%32)*32+(tileCol%32))*2
		entry := readVRAM16(vram, entryAddr)

		tileNum := entry & 0x3FF
		hflip := entry&0x400 != 0
		vflip := entry&0x800 != 0
		palBank := uint8(entry >> 12 & 0xF)

		row := pixelRow
		if vflip {
			row = 7 - row
		}
		col := pixelCol
		if hflip {
			col = 7 - col
		}

		var idx uint8
		if ctl.colorMode8 {
			tileAddr := ctl.charBase + uint32(tileNum)*64 + uint32(row*8+col)
			idx = readVRAMByte(vram, tileAddr)
		} else {
			tileAddr := ctl.charBase + uint32(tileNum)*32 + uint32(row*4+col/2)
			b := readVRAMByte(vram, tileAddr)
			if col&1 == 0 {
				idx = b & 0xF
			} else {
				idx = b >> 4
			}
			if idx != 0 {
				idx += palBank * 16
			}
		}

		if idx == 0 {
			opaque[x] = false
			continue
		}
		layer[x] = readPaletteColor(pal, idx)
		opaque[x] = true
	}
}

// renderAffine renders one scanline of an affine background using the
// per-scanline-latched reference point and the bgpa/bgpc (only pa/pc are
// needed for a single row's x/y source sampling, matching the hardware's
// per-scanline accumulation of [dx,dy] by [pa,pc]).
func (p *PPU) renderAffine(bg, y int, layer *[240]uint16, opaque *[240]bool) {
	ctl := p.bgControlFor(bg)
	idx := 0
	if bg == 3 {
		idx = 1
	}

	mosaicH := 1
	if ctl.mosaic {
		h, v, _, _ := p.mosaicSizes()
		mosaicH = h
		if y%v != 0 {
			// vertical mosaic block continuation: bgRefCurrent has no
			// history, so reuse the line rendered at this block's first
			// scanline instead of re-sampling with today's reference point.
			*layer = p.affineMosaicCache[idx].layer
			*opaque = p.affineMosaicCache[idx].opaque
			return
		}
	}

	base := offBG2PA
	if bg == 3 {
		base = offBG3PA
	}
	pa := int32(int16(p.readHalf(base)))
	pc := int32(int16(p.readHalf(base + 4)))

	refX := p.bgRefCurrent[idx][0]
	refY := p.bgRefCurrent[idx][1]

	size := 128 << ctl.screenSize // 128,256,512,1024
	vram := p.mem.VRAM()
	pal := p.mem.Palette()

	for x := 0; x < 240; x++ {
		sampleX := x
		if ctl.mosaic {
			sampleX -= x % mosaicH
		}
		srcX := int32(sampleX)*pa + refX
		srcY := int32(sampleX)*pc + refY

		px := int(srcX >> 8)
		py := int(srcY >> 8)

		if px < 0 || py < 0 || px >= size || py >= size {
			if !ctl.wrap {
				opaque[x] = false
				continue
			}
			px &= size - 1
			py &= size - 1
		}

		mapTilesPerRow := size / 8
		tileCol := px / 8
		tileRow := py / 8
		entryAddr := ctl.screenBase + uint32(tileRow*mapTilesPerRow+tileCol)
		tileNum := uint32(readVRAMByte(vram, entryAddr))

		tileAddr := ctl.charBase + tileNum*64 + uint32((py%8)*8+(px%8))
		colorIdx := readVRAMByte(vram, tileAddr)

		if colorIdx == 0 {
			opaque[x] = false
			continue
		}
		layer[x] = readPaletteColor(pal, colorIdx)
		opaque[x] = true
	}

	if ctl.mosaic {
		p.affineMosaicCache[idx].layer = *layer
		p.affineMosaicCache[idx].opaque = *opaque
	}
}

// bitmapMosaic returns the effective sample coordinates for a bitmap-mode
// (3/4/5) scanline, floored to BG2CNT's mosaic block size when its
// mosaic bit is set. Unlike the tile backgrounds, a bitmap mode samples
// VRAM directly as a pure function of (x,y), so there's nothing to cache:
// flooring the inputs is enough.
func (p *PPU) bitmapMosaic(x, y int) (int, int) {
	ctl := p.bgControlFor(2)
	if !ctl.mosaic {
		return x, y
	}
	h, v, _, _ := p.mosaicSizes()
	return x - x%h, y - y%v
}

func (p *PPU) renderBitmapDirect(y int, layer *[240]uint16, opaque *[240]bool) {
	vram := p.mem.VRAM()
	for x := 0; x < 240; x++ {
		sx, sy := p.bitmapMosaic(x, y)
		base := uint32(sy*240*2) + uint32(sx)*2
		c := p.bitmapHalf(vram, base)
		layer[x] = c & 0x7FFF
		opaque[x] = true
	}
}

func (p *PPU) renderBitmapPaletted(y int, layer *[240]uint16, opaque *[240]bool) {
	vram := p.mem.VRAM()
	pal := p.mem.Palette()
	frame := uint32(0)
	if p.mmio[offDISPCNT]&0x10 != 0 {
		frame = 0xA000
	}
	for x := 0; x < 240; x++ {
		sx, sy := p.bitmapMosaic(x, y)
		idx := p.bitmapByte(vram, frame+uint32(sy*240)+uint32(sx))
		if idx == 0 {
			opaque[x] = false
			continue
		}
		layer[x] = readPaletteColor(pal, idx)
		opaque[x] = true
	}
}

func (p *PPU) renderBitmapSmall(y int, layer *[240]uint16, opaque *[240]bool) {
	if y >= 128 {
		for x := range layer {
			opaque[x] = false
		}
		return
	}
	vram := p.mem.VRAM()
	frame := uint32(0)
	if p.mmio[offDISPCNT]&0x10 != 0 {
		frame = 0xA000
	}
	for x := 0; x < 240; x++ {
		if x >= 160 {
			opaque[x] = false
			continue
		}
		sx, sy := p.bitmapMosaic(x, y) // floor-only: sx <= x < 160 always holds
		base := frame + uint32(sy*160*2) + uint32(sx)*2
		c := p.bitmapHalf(vram, base)
		layer[x] = c & 0x7FFF
		opaque[x] = true
	}
}

// bitmapByte/bitmapHalf implement the documented behavior for a bitmap
// mode sampling past the bitmap's own backing area: either zero or an
// open-bus-style readback of the low address bits, selected by the
// BitmapOOBReturnsZero preference (default false, open bus).
func (p *PPU) bitmapByte(vram []byte, addr uint32) uint8 {
	if int(addr) < len(vram) {
		return vram[addr]
	}
	if p.bitmapOOBZero {
		return 0
	}
	return uint8(addr)
}

func (p *PPU) bitmapHalf(vram []byte, addr uint32) uint16 {
	if int(addr)+1 < len(vram) {
		return uint16(vram[addr]) | uint16(vram[addr+1])<<8
	}
	if p.bitmapOOBZero {
		return 0
	}
	return uint16(addr)
}

func mapWidthMask(size uint8) int {
	if size == 1 || size == 3 {
		return 511
	}
	return 255
}

func mapHeightMask(size uint8) int {
	if size == 2 || size == 3 {
		return 511
	}
	return 255
}

func screenBlockFor(size uint8, tileCol, tileRow int) uint32 {
	switch size {
	case 0:
		return 0
	case 1:
		return uint32(tileCol / 32)
	case 2:
		return uint32(tileRow / 32)
	default:
		return uint32(tileCol/32) + uint32(tileRow/32)*2
	}
}

func readVRAMByte(vram []byte, addr uint32) uint8 {
	if int(addr) >= len(vram) {
		return 0
	}
	return vram[addr]
}

func readVRAM16(vram []byte, addr uint32) uint16 {
	if int(addr)+1 >= len(vram) {
		return 0
	}
	return uint16(vram[addr]) | uint16(vram[addr+1])<<8
}

func readPaletteColor(pal []byte, idx uint8) uint16 {
	off := int(idx) * 2
	if off+1 >= len(pal) {
		return 0
	}
	return uint16(pal[off]) | uint16(pal[off+1])<<8
}
