// Package identity generates player ids, room ids and serial numbers from a
// non-cryptographic, injectable random source.
package identity

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

const (
	letters      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits       = "0123456789"
	base36       = "0123456789abcdefghijklmnopqrstuvwxyz"
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	playerPrefix   = "player_"
	playerIDLength = 9
	roomIDLength   = 20
	serialLetters  = 2
	serialDigits   = 8
)

// Source is the subset of *rand.Rand the generator draws from.
type Source interface {
	IntN(n int) int
}

type Generator struct {
	mu  sync.Mutex
	src Source
}

func New(src Source) *Generator {
	return &Generator{src: src}
}

// NewSeeded returns a generator whose output is fully determined by seed.
func NewSeeded(seed uint64) *Generator {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewDefault seeds from the clock.
func NewDefault() *Generator {
	return NewSeeded(uint64(time.Now().UnixNano()))
}

// NewPlayerID returns "player_" followed by 9 base-36 characters. Uniqueness
// is best-effort.
func (g *Generator) NewPlayerID() string {
	return playerPrefix + g.draw(base36, playerIDLength)
}

func (g *Generator) NewRoomID() string {
	return g.draw(alphanumeric, roomIDLength)
}

// NewSerialNumber returns 2 uppercase letters followed by 8 digits.
func (g *Generator) NewSerialNumber() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sb strings.Builder
	sb.Grow(serialLetters + serialDigits)
	g.appendLocked(&sb, letters, serialLetters)
	g.appendLocked(&sb, digits, serialDigits)
	return sb.String()
}

func (g *Generator) draw(alphabet string, n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sb strings.Builder
	sb.Grow(n)
	g.appendLocked(&sb, alphabet, n)
	return sb.String()
}

func (g *Generator) appendLocked(sb *strings.Builder, alphabet string, n int) {
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[g.src.IntN(len(alphabet))])
	}
}
