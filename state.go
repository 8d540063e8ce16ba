package qok

// state is the part of the codec that encoder and decoder must keep in
// lockstep: the previous pixel and the 64 slot cache. A fresh state is
// created for every Encode and Decode call.
type state struct {
	Prev  Pixel
	Cache [cacheSize]Pixel
}

func newState() *state {
	return &state{Prev: start}
}

func (s *state) lookup(p Pixel) (uint8, bool) {
	h := p.hash()
	return h, s.Cache[h] == p
}

// remember makes p the previous pixel and stores it in its cache slot.
func (s *state) remember(p Pixel) {
	s.Prev = p
	s.Cache[p.hash()] = p
}
