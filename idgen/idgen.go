// Package idgen generates short room codes that never repeat during the
// lifetime of the process.
package idgen

import (
	"crypto/rand"
	"math/big"
	"sync"
)

const (
	alphabet      = "0123456789abcdefghijklmnopqrstuvwxyz"
	DefaultLength = 6
)

// Generator remembers every id it has handed out and never returns one twice.
// The set only grows.
type Generator struct {
	length int
	ids    map[string]struct{}
	locker sync.Mutex
}

// New returns a generator of ids with the given length (DefaultLength if not positive).
func New(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{
		length: length,
		ids:    make(map[string]struct{}),
	}
}

// Generate returns a fresh base36 id.
func (g *Generator) Generate() string {
	g.locker.Lock()
	defer g.locker.Unlock()

	for {
		id := randomString(g.length)
		if _, taken := g.ids[id]; !taken {
			g.ids[id] = struct{}{}
			return id
		}
	}
}

// Issued reports how many ids were handed out.
func (g *Generator) Issued() int {
	g.locker.Lock()
	defer g.locker.Unlock()
	return len(g.ids)
}

func randomString(n int) string {
	size := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, size)
		if err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		b[i] = alphabet[v.Int64()]
	}
	return string(b)
}
