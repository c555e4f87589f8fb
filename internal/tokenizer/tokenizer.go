// Package tokenizer wraps the BPE tokenizer used to bound chunk size. It
// mirrors the original's encoding cache: encoders are loaded once per
// name and reused.
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

var (
	mu    sync.Mutex
	cache = make(map[string]*tiktoken.Tiktoken)
)

// GetEncoding returns the named encoder, loading and caching it on first
// use. An unknown or unloadable name falls back to cl100k_base.
func GetEncoding(name string) (*tiktoken.Tiktoken, error) {
	if name == "" {
		name = defaultEncoding
	}

	mu.Lock()
	defer mu.Unlock()

	if enc, ok := cache[name]; ok {
		return enc, nil
	}

	enc, err := tiktoken.GetEncoding(name)
	if err != nil && name != defaultEncoding {
		enc, err = tiktoken.GetEncoding(defaultEncoding)
		name = defaultEncoding
	}
	if err != nil {
		return nil, err
	}

	cache[name] = enc
	return enc, nil
}

// Counter counts tokens in a string using a fixed encoding. Pure and
// deterministic; used only to measure chunk size.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// New builds a Counter over the default cl100k_base encoding.
func New() (*Counter, error) {
	enc, err := GetEncoding(defaultEncoding)
	if err != nil {
		return nil, err
	}
	return &Counter{enc: enc}, nil
}

// Count returns the token count of s.
func (c *Counter) Count(s string) int {
	if s == "" {
		return 0
	}
	return len(c.enc.Encode(s, nil, nil))
}
