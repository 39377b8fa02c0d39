package ppu

// windowsEnabled reports whether DISPCNT enables window 0, window 1, or
// the OBJ window (bits 13, 14, 15).
func (p *PPU) windowsEnabled() (win0, win1, objWin bool) {
	hi := p.mmio[offDISPCNT+1]
	return hi&0x20 != 0, hi&0x40 != 0, hi&0x80 != 0
}

// computeWindowMasks recomputes winMask[0]/winMask[1] for scanline y: a
// pixel is inside a window when it falls within both the window's
// horizontal and vertical ranges, with wraparound when min > max (the
// range wraps around the screen instead of being empty).
func (p *PPU) computeWindowMasks(y int) {
	win0, win1, _ := p.windowsEnabled()

	p.fillWindow(0, y, win0, p.readHalf(offWIN0H), p.readHalf(offWIN0V))
	p.fillWindow(1, y, win1, p.readHalf(offWIN1H), p.readHalf(offWIN1V))
}

func (p *PPU) fillWindow(idx int, y int, enabled bool, h, v uint16) {
	if !enabled {
		for x := range p.winMask[idx] {
			p.winMask[idx][x] = false
		}
		return
	}

	x1 := int(h >> 8)
	x2 := int(h & 0xFF)
	y1 := int(v >> 8)
	y2 := int(v & 0xFF)

	insideV := inRange(y, y1, y2, 160)
	for x := 0; x < 240; x++ {
		p.winMask[idx][x] = insideV && inRange(x, x1, x2, 240)
	}
}

// inRange reports whether v lies in [lo, hi) on a ring of size `size`,
// wrapping around when lo > hi (e.g. a window spanning the screen seam).
func inRange(v, lo, hi, size int) bool {
	if hi > size {
		hi = size
	}
	if lo <= hi {
		return v >= lo && v < hi
	}
	return v >= lo || v < hi
}

// windowEnableFor returns the per-layer enable bitmask (bits 0-3 = BG0-3,
// bit 4 = OBJ, bit 5 = blend effect) in effect at pixel x on the current
// scanline: window 0 takes priority over window 1, which takes priority
// over the OBJ window, which takes priority over the "outside" mask.
func (p *PPU) windowEnableFor(x int) uint8 {
	win0, win1, objWin := p.windowsEnabled()
	if !win0 && !win1 && !objWin {
		return 0x3F // no windows active: everything enabled
	}

	if win0 && p.winMask[0][x] {
		return p.mmio[offWININ]
	}
	if win1 && p.winMask[1][x] {
		return p.mmio[offWININ+1]
	}
	if objWin && p.objBuf[x].present && p.objBuf[x].isWindow {
		return p.mmio[offWINOUT+1]
	}
	return p.mmio[offWINOUT]
}
