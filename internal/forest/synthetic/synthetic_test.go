package synthetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingCrowns_Layout(t *testing.T) {
	s := RingCrowns()

	require.Len(t, s.Positions, RingCrownCount*RingPointsPerCrown+GroundPointCount)
	require.Len(t, s.Crowns, RingCrownCount)
	for k, sp := range s.Crowns {
		assert.Equal(t, RingPointsPerCrown, sp.Len(), "crown %d", k)
		assert.Equal(t, k*RingPointsPerCrown, sp.Start)
	}
	assert.Equal(t, Span{Start: 300, End: 350}, s.Ground)

	for i := s.Crowns[0].Start; i < s.Crowns[len(s.Crowns)-1].End; i++ {
		z := s.Positions[i].Z
		assert.True(t, z >= 5.0 && z <= 7.7+1e-9, "crown point %d at z=%f", i, z)
	}
	for i := s.Ground.Start; i < s.Ground.End; i++ {
		assert.Equal(t, 0.0, s.Positions[i].Z)
		assert.Equal(t, s.Positions[i].X, s.Positions[i].Y)
	}
}

func TestRingCrowns_FirstPointOfEachCrownIsCentre(t *testing.T) {
	s := RingCrowns()
	for k, sp := range s.Crowns {
		p := s.Positions[sp.Start]
		assert.InDelta(t, float64(k)*RingCrownSpacing, p.X, 1e-12)
		assert.InDelta(t, float64(k)*RingCrownSpacing, p.Y, 1e-12)
		assert.Equal(t, 5.0, p.Z)
	}
}

func TestCrownOf(t *testing.T) {
	s := RingCrowns()
	assert.Equal(t, 0, s.CrownOf(0))
	assert.Equal(t, 1, s.CrownOf(150))
	assert.Equal(t, 2, s.CrownOf(299))
	assert.Equal(t, -1, s.CrownOf(300))
}

func TestDomeCrowns_Shape(t *testing.T) {
	opts := DefaultDomeOptions()
	s := DomeCrowns(opts)

	require.Len(t, s.Crowns, 3)
	per := s.Crowns[0].Len()
	assert.Greater(t, per, 300)
	for _, sp := range s.Crowns {
		assert.Equal(t, per, sp.Len(), "regular domes have equal point counts")
	}
	assert.Equal(t, GroundPointCount, s.Ground.Len())

	for k, sp := range s.Crowns {
		c := opts.Centers[k]
		apex := 0.0
		for i := sp.Start; i < sp.End; i++ {
			p := s.Positions[i]
			assert.LessOrEqual(t, (p.X-c[0])*(p.X-c[0])+(p.Y-c[1])*(p.Y-c[1]), opts.Radius*opts.Radius+1e-9)
			assert.GreaterOrEqual(t, p.Z, opts.Base-1e-9)
			if p.Z > apex {
				apex = p.Z
			}
		}
		assert.Equal(t, opts.Base+opts.Height, apex, "apex sits on the crown centre")
	}
}

func TestDomeCrowns_JitterIsSeeded(t *testing.T) {
	opts := DefaultDomeOptions()
	opts.Jitter = 0.1
	opts.Seed = 42

	a := DomeCrowns(opts)
	b := DomeCrowns(opts)
	assert.Equal(t, a.Positions, b.Positions)

	opts.Jitter = 0
	assert.NotEqual(t, DomeCrowns(opts).Positions, a.Positions)
}

func TestGroundLine(t *testing.T) {
	pts := GroundLine(4, 1.5)
	require.Len(t, pts, 4)
	assert.Equal(t, 4.5, pts[3].X)
	assert.Equal(t, 4.5, pts[3].Y)
	assert.Equal(t, 0.0, pts[3].Z)
}
