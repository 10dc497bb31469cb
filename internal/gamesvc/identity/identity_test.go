package identity

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	serialRe   = regexp.MustCompile(`^[A-Z]{2}[0-9]{8}$`)
	playerIDRe = regexp.MustCompile(`^player_[0-9a-z]{9}$`)
	roomIDRe   = regexp.MustCompile(`^[A-Za-z0-9]{20}$`)
)

func TestFormats(t *testing.T) {
	g := NewSeeded(7)
	for i := 0; i < 200; i++ {
		assert.Regexp(t, serialRe, g.NewSerialNumber())
		assert.Regexp(t, playerIDRe, g.NewPlayerID())
		assert.Regexp(t, roomIDRe, g.NewRoomID())
	}
}

func TestSeededIsReproducible(t *testing.T) {
	a, b := NewSeeded(42), NewSeeded(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.NewSerialNumber(), b.NewSerialNumber())
		assert.Equal(t, a.NewPlayerID(), b.NewPlayerID())
	}
	assert.NotEqual(t, NewSeeded(1).NewSerialNumber(), NewSeeded(2).NewSerialNumber())
}

type fixedSource struct{ next int }

func (f *fixedSource) IntN(n int) int {
	v := f.next % n
	f.next++
	return v
}

func TestInjectedSource(t *testing.T) {
	g := New(&fixedSource{})
	// letters draw 0,1 -> "AB"; digits draw 2..9 -> "23456789"
	assert.Equal(t, "AB23456789", g.NewSerialNumber())
}
