package ppu

// objShapeSize maps a (shape, size) OAM attribute pair to a tile
// dimension in pixels.
var objShapeSize = [4][4][2]int{
	{{8, 8}, {16, 16}, {32, 32}, {64, 64}},  // square
	{{16, 8}, {32, 8}, {32, 16}, {64, 32}},  // horizontal
	{{8, 16}, {8, 32}, {16, 32}, {32, 64}},  // vertical
	{{8, 8}, {8, 8}, {8, 8}, {8, 8}},        // prohibited, treated as 8x8
}

const objCycleBudgetNormal = 1210
const objCycleBudgetReduced = 954

// renderSprites walks OAM's 128 entries and fills p.objBuf for scanline
// y, honoring the per-scanline OBJ rendering cycle budget.
func (p *PPU) renderSprites(y int) {
	for x := range p.objBuf {
		p.objBuf[x] = objPixel{}
	}
	if p.mmio[offDISPCNT+1]&0x10 == 0 { // DISPCNT bit 12: OBJ enable
		return
	}

	budget := objCycleBudgetNormal
	if p.mmio[offDISPCNT]&0x20 != 0 {
		// DISPCNT bit 5, H-blank OAM access free, set: software can touch OAM during
		// H-blank, which costs the OBJ renderer its reduced budget.
		budget = objCycleBudgetReduced
	}

	oam := p.mem.OAM()
	vram := p.mem.VRAM()
	pal := p.mem.Palette()

	for entry := 0; entry < 128 && budget > 0; entry++ {
		base := entry * 8
		attr0 := uint16(oam[base]) | uint16(oam[base+1])<<8
		attr1 := uint16(oam[base+2]) | uint16(oam[base+3])<<8
		attr2 := uint16(oam[base+4]) | uint16(oam[base+5])<<8

		isAffine := attr0&0x100 != 0
		if !isAffine && attr0&0x200 != 0 {
			continue // disabled
		}
		objMode := attr0 >> 10 & 0x3

		shape := attr0 >> 14 & 0x3
		size := attr1 >> 14 & 0x3
		dims := objShapeSize[shape][size]
		width, height := dims[0], dims[1]

		doubleSize := isAffine && attr0&0x200 != 0
		boundW, boundH := width, height
		if doubleSize {
			boundW, boundH = width*2, height*2
		}

		yPos := int(attr0 & 0xFF)
		if yPos >= 160 {
			yPos -= 256
		}
		if y < yPos || y >= yPos+boundH {
			continue
		}

		halfWidth := width / 2
		var cost int
		if isAffine {
			cost = 10 + 4*halfWidth
		} else {
			cost = 2 * halfWidth
		}
		if cost > budget {
			break
		}
		budget -= cost

		xPos := int(attr1 & 0x1FF)
		if xPos >= 256 {
			xPos -= 512
		}

		priority := uint8(attr2 >> 10 & 0x3)
		colorMode8 := attr0&0x2000 != 0
		tileBase := uint32(attr2 & 0x3FF)
		palBank := uint8(attr2 >> 12 & 0xF)
		semiTransparent := objMode == 0x1
		isWindowObj := objMode == 0x2

		hflip := !isAffine && attr1&0x1000 != 0
		vflip := !isAffine && attr1&0x2000 != 0

		var pa, pb, pc, pd int32 = 256, 0, 0, 256
		if isAffine {
			paramSel := int(attr1 >> 9 & 0x1F)
			pa, pb, pc, pd = p.readAffineParams(oam, paramSel)
		}

		mosaic := attr0&0x1000 != 0
		objH, objV := 1, 1
		if mosaic {
			_, _, objH, objV = p.mosaicSizes()
		}

		localY := y - yPos
		if mosaic {
			localY = (y - y%objV) - yPos
		}
		cy := localY - boundH/2
		cx0 := -boundW / 2

		for sx := 0; sx < boundW; sx++ {
			screenX := xPos + sx
			if screenX < 0 || screenX >= 240 {
				continue
			}
			effSx := sx
			if mosaic {
				effSx = (screenX - screenX%objH) - xPos
			}
			cx := cx0 + effSx

			var texX, texY int
			if isAffine {
				fx := int32(cx)*pa + int32(cy)*pb
				fy := int32(cx)*pc + int32(cy)*pd
				texX = int(fx>>8) + width/2
				texY = int(fy>>8) + height/2
				if texX < 0 || texY < 0 || texX >= width || texY >= height {
					continue
				}
			} else {
				texX = effSx
				texY = localY
				if hflip {
					texX = width - 1 - texX
				}
				if vflip {
					texY = height - 1 - texY
				}
			}

			idx := readObjPixel(vram, pal, tileBase, texX, texY, colorMode8, palBank, objMappingIs1D(p.mmio[offDISPCNT]), uint32(width/8))
			if idx == 0 {
				continue
			}

			existing := p.objBuf[screenX]
			if existing.present && existing.priority <= priority {
				continue
			}
			p.objBuf[screenX] = objPixel{
				present:         true,
				priority:        priority,
				color:           readPaletteColorOBJ(pal, idx),
				semiTransparent: semiTransparent,
				isWindow:        isWindowObj,
			}
		}
	}
}

func objMappingIs1D(dispcntLo uint8) bool { return dispcntLo&0x40 != 0 }

func (p *PPU) readAffineParams(oam []byte, sel int) (pa, pb, pc, pd int32) {
	base := sel*32 + 6
	read := func(off int) int32 {
		return int32(int16(uint16(oam[base+off]) | uint16(oam[base+off+1])<<8))
	}
	pa = read(0)
	pb = read(8)
	pc = read(16)
	pd = read(24)
	return
}

// readObjPixel returns the raw palette index (0 = transparent) for OBJ
// tile `tileBase` at local coordinates (texX, texY) within an 8px-tiled
// sprite of spriteWidthTiles tiles across, honoring 1D (tiles laid out
// consecutively in reading order) vs 2D (tiles laid out in a fixed
// 32-tile-wide sheet) OBJ character mapping.
func readObjPixel(vram, pal []byte, tileBase uint32, texX, texY int, colorMode8 bool, palBank uint8, oneD bool, spriteWidthTiles uint32) uint8 {
	const objCharBase = 0x10000
	tileCol := uint32(texX / 8)
	tileRow := uint32(texY / 8)
	px, py := texX%8, texY%8

	stride := uint32(1)
	if colorMode8 {
		stride = 2
	}

	var tileNum uint32
	if oneD {
		tileNum = tileBase + tileRow*spriteWidthTiles*stride + tileCol*stride
	} else {
		tileNum = tileBase + tileRow*32 + tileCol*stride
	}

	if colorMode8 {
		addr := objCharBase + tileNum*64 + uint32(py*8+px)
		return readVRAMByte(vram, addr)
	}
	addr := objCharBase + tileNum*32 + uint32(py*4+px/2)
	b := readVRAMByte(vram, addr)
	var idx uint8
	if px&1 == 0 {
		idx = b & 0xF
	} else {
		idx = b >> 4
	}
	if idx != 0 {
		idx += palBank * 16
	}
	return idx
}

func readPaletteColorOBJ(pal []byte, idx uint8) uint16 {
	off := 0x200 + int(idx)*2
	if off+1 >= len(pal) {
		return 0
	}
	return uint16(pal[off]) | uint16(pal[off+1])<<8
}
