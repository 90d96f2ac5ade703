package playground

import (
	"sync"

	"golang.org/x/crypto/blake2b"

	"koala/pkg/compiler"
	"koala/pkg/opcode"
	"koala/pkg/parser"
)

// Cache holds compiled programs keyed by the blake2b-256 digest of their
// source. The oldest entry is evicted once size entries are held.
type Cache struct {
	mu      sync.Mutex
	size    int
	entries map[[blake2b.Size256]byte]opcode.Instructions
	order   [][blake2b.Size256]byte

	hits   int
	misses int
}

func NewCache(size int) *Cache {
	if size <= 0 {
		size = 1
	}
	return &Cache{
		size:    size,
		entries: make(map[[blake2b.Size256]byte]opcode.Instructions, size),
	}
}

// Compile returns the instructions for source, compiling on a miss.
// Failed compiles are not cached. The returned slice is shared and must
// not be modified.
func (c *Cache) Compile(source string) (opcode.Instructions, error) {
	key := blake2b.Sum256([]byte(source))

	c.mu.Lock()
	if ins, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return ins, nil
	}
	c.misses++
	c.mu.Unlock()

	ins, err := compileSource(source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.size {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
		c.entries[key] = ins
		c.order = append(c.order, key)
	}
	return ins, nil
}

// Stats reports cache hits and misses so far.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func compileSource(source string) (opcode.Instructions, error) {
	program, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}

	comp := compiler.GetCompiler()
	defer compiler.PutCompiler(comp)

	if err := comp.Compile(program); err != nil {
		return nil, err
	}
	return comp.Bytecode().Instructions, nil
}
