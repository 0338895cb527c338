package compute

// PingPong holds two same-shaped textures. A pass reads Current and writes
// Target; Swap publishes the written texture as the new Current.
type PingPong struct {
	bufs [2]*Texture
	cur  int
}

func NewPingPong(b Backend, name string, width, height int, format Format) (*PingPong, error) {
	a, err := b.NewTexture(name+"_a", width, height, format)
	if err != nil {
		return nil, err
	}
	c, err := b.NewTexture(name+"_b", width, height, format)
	if err != nil {
		return nil, err
	}
	return &PingPong{bufs: [2]*Texture{a, c}}, nil
}

func (p *PingPong) Current() *Texture { return p.bufs[p.cur] }
func (p *PingPong) Target() *Texture  { return p.bufs[1-p.cur] }

func (p *PingPong) Swap() { p.cur = 1 - p.cur }

// Reset makes the first buffer current again.
func (p *PingPong) Reset() { p.cur = 0 }
