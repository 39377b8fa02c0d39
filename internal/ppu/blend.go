package ppu

// blendEffect enumerates BLDCNT's composition effect selector.
type blendEffect uint8

const (
	blendNone blendEffect = iota
	blendAlpha
	blendBrighten
	blendDarken
)

// buildBlendTable precomputes the saturating 5-bit-channel sum used by
// alpha blending: table[a][b] = min(31, a+b).
func (p *PPU) buildBlendTable() {
	for a := 0; a < 32; a++ {
		for b := 0; b < 32; b++ {
			v := a + b
			if v > 31 {
				v = 31
			}
			p.bldTable[a][b] = uint8(v)
		}
	}
}

type layerPick struct {
	present         bool
	isObj           bool
	bg              int
	color           uint16
	semiTransparent bool
}

// compose implements the scanline composition/blend stage: for each
// pixel, picks the top two layers visible under the window mask, then
// applies BLDCNT's selected effect between them.
func (p *PPU) compose(y int, mode uint8, layers *[4][240]uint16, opaque *[4][240]bool) {
	bldcnt := p.readHalf(offBLDCNT)
	effect := blendEffect(bldcnt >> 6 & 0x3)
	targetA := uint8(bldcnt & 0x3F)
	targetB := uint8(bldcnt >> 8 & 0x3F)
	alpha := p.readHalf(offBLDALPHA)
	eva := int(alpha & 0x1F)
	evb := int(alpha >> 8 & 0x1F)
	evy := int(p.readHalf(offBLDY) & 0x1F)

	bgPriorityOrder := p.backgroundPriorityOrder(mode)

	row := p.back.Pixels[y*240 : y*240+240]

	for x := 0; x < 240; x++ {
		enable := p.windowEnableFor(x)
		top, second := p.pickTopTwoLayers(x, bgPriorityOrder, layers, opaque, enable)

		var color uint16
		switch {
		case !top.present:
			color = p.backdropColor()
		case enable&0x20 == 0:
			color = top.color
		default:
			color = p.blendPixel(effect, top, second, targetA, targetB, eva, evb, evy)
		}

		row[x] = colorToARGB(color)
	}
}

// backgroundPriorityOrder returns the BG indices active in `mode`, sorted
// by ascending priority value then ascending index (GBA tie-break:
// lower BG index wins at equal priority).
func (p *PPU) backgroundPriorityOrder(mode uint8) []int {
	var active []int
	switch mode {
	case 0:
		active = []int{0, 1, 2, 3}
	case 1:
		active = []int{0, 1, 2}
	case 2:
		active = []int{2, 3}
	default:
		active = []int{2}
	}

	prio := func(bg int) uint8 { return p.bgControlFor(bg).priority }
	for i := 1; i < len(active); i++ {
		for j := i; j > 0 && prio(active[j]) < prio(active[j-1]); j-- {
			active[j], active[j-1] = active[j-1], active[j]
		}
	}
	return active
}

func (p *PPU) pickTopTwoLayers(x int, bgOrder []int, layers *[4][240]uint16, opaque *[4][240]bool, enable uint8) (top, second layerPick) {
	obj := p.objBuf[x]
	objVisible := obj.present && enable&0x10 != 0 && !obj.isWindow
	objPicked := false

	tryBG := func(bg int) {
		if enable&(1<<bg) == 0 || !opaque[bg][x] {
			return
		}
		pick := layerPick{present: true, bg: bg, color: layers[bg][x]}
		if !top.present {
			top = pick
		} else if !second.present {
			second = pick
		}
	}

	considerObj := func() {
		if !objVisible || objPicked {
			return
		}
		pick := layerPick{present: true, isObj: true, color: obj.color, semiTransparent: obj.semiTransparent}
		if !top.present || objHigherPriority(obj.priority, top, p) {
			if top.present {
				second = top
			}
			top = pick
		} else if !second.present {
			second = pick
		}
		objPicked = true
	}

	// OBJ participates at its own priority relative to backgrounds; since
	// bgOrder is already priority-sorted, walk it once and splice OBJ in
	// where its priority value would sort.
	inserted := false
	objPrio := obj.priority
	for _, bg := range bgOrder {
		if objVisible && !inserted && objPrio <= p.bgControlFor(bg).priority {
			considerObj()
			inserted = true
		}
		tryBG(bg)
	}
	if objVisible && !inserted {
		considerObj()
	}

	return top, second
}

func objHigherPriority(objPriority uint8, current layerPick, p *PPU) bool {
	if current.isObj {
		return false
	}
	return objPriority <= p.bgControlFor(current.bg).priority
}

// blendPixel applies BLDCNT's selected effect to the top (and, for
// alpha blending, second) layer. A semi-transparent OBJ forces alpha
// blending against whatever sits beneath it even if BLDCNT's own effect
// selector picked something else, per the spec's "alpha-OBJ forces a
// blend" rule.
func (p *PPU) blendPixel(effect blendEffect, top, second layerPick, targetA, targetB uint8, eva, evb, evy int) uint16 {
	topBit := layerBit(top)
	forced := top.isObj && top.semiTransparent

	switch {
	case forced || (effect == blendAlpha && topBit&targetA != 0):
		secondBit := uint8(0x20)
		secondColor := p.backdropColor()
		if second.present {
			secondBit = layerBit(second)
			secondColor = second.color
		}
		if !forced && secondBit&targetB == 0 {
			return top.color
		}
		return blendAlphaColors(top.color, secondColor, eva, evb, &p.bldTable)
	case effect == blendBrighten && topBit&targetA != 0:
		return blendBrightenColor(top.color, evy)
	case effect == blendDarken && topBit&targetA != 0:
		return blendDarkenColor(top.color, evy)
	default:
		return top.color
	}
}

func layerBit(l layerPick) uint8 {
	if l.isObj {
		return 0x10
	}
	return 1 << l.bg
}

// blendAlphaColors combines two 15-bit colors' channels via the
// precomputed saturating-add table: each channel is scaled by its
// coefficient independently (clamped to the table's 0-31 domain), then
// the two scaled components are summed through the table rather than
// with a second manual clamp.
func blendAlphaColors(a, b uint16, eva, evb int, table *[32][32]uint8) uint16 {
	scale := func(v, coeff int) int {
		x := v * coeff / 16
		if x > 31 {
			return 31
		}
		if x < 0 {
			return 0
		}
		return x
	}
	blendChan := func(ca, cb uint16, shift uint) uint16 {
		va := int(ca >> shift & 0x1F)
		vb := int(cb >> shift & 0x1F)
		return uint16(table[scale(va, eva)][scale(vb, evb)]) << shift
	}
	return blendChan(a, b, 0) | blendChan(a, b, 5) | blendChan(a, b, 10)
}

func blendBrightenColor(c uint16, evy int) uint16 {
	blendChan := func(v uint16, shift uint) uint16 {
		x := int(v >> shift & 0x1F)
		x = x + (31-x)*evy/16
		if x > 31 {
			x = 31
		}
		return uint16(x) << shift
	}
	return blendChan(c, 0) | blendChan(c, 5) | blendChan(c, 10)
}

func blendDarkenColor(c uint16, evy int) uint16 {
	blendChan := func(v uint16, shift uint) uint16 {
		x := int(v >> shift & 0x1F)
		x = x - x*evy/16
		if x < 0 {
			x = 0
		}
		return uint16(x) << shift
	}
	return blendChan(c, 0) | blendChan(c, 5) | blendChan(c, 10)
}

func (p *PPU) backdropColor() uint16 {
	pal := p.mem.Palette()
	return readPaletteColor(pal, 0)
}

func colorToARGB(c uint16) uint32 {
	r := uint32(c & 0x1F)
	g := uint32(c >> 5 & 0x1F)
	b := uint32(c >> 10 & 0x1F)
	return 0xFF000000 | r<<19 | g<<11 | b<<3
}
