package qok

// Chunk tag bytes are packed and unpacked with explicit shifts so that the
// bit order is fixed regardless of platform:
//
//	INDEX  00 vvvvvv             v = cache slot
//	DIFF   01 rr gg bb           each delta biased by 2
//	LUMA   10 gggggg  rrrr bbbb  dg biased by 32, dr-dg and db-dg by 8
//	RUN    11 vvvvvv             v = run length - 1, at most 61
//	RGB    11111110 r g b
//	RGBA   11111111 r g b a

func packIndex(slot uint8) byte {
	return opIndex | slot&maskValue
}

func packDiff(dr, dg, db int) byte {
	return opDiff | byte(dr+2)<<4 | byte(dg+2)<<2 | byte(db+2)
}

func unpackDiff(b byte) (dr, dg, db int) {
	dr = int(b>>4&0x03) - 2
	dg = int(b>>2&0x03) - 2
	db = int(b&0x03) - 2
	return
}

func packLuma(dg, drdg, dbdg int) (byte, byte) {
	return opLuma | byte(dg+32), byte(drdg+8)<<4 | byte(dbdg+8)
}

func unpackLuma(b1, b2 byte) (dr, dg, db int) {
	dg = int(b1&maskValue) - 32
	dr = int(b2>>4) - 8 + dg
	db = int(b2&0x0f) - 8 + dg
	return
}

func packRun(n int) byte {
	return opRun | byte(n-1)
}

// add applies a signed delta to an 8-bit channel modulo 256.
func add(c uint8, d int) uint8 {
	return uint8((int(c) + d) & 0xff)
}

func inRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}
