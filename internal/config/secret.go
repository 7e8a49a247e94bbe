// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package config

import "sync"

// SecretProvider loads the webhook secret once, on first use, and serves the
// cached value afterwards. It is safe for concurrent use.
type SecretProvider struct {
	load func() (string, bool)

	once   sync.Once
	secret []byte
	ok     bool
}

// NewSecretProvider wraps load, which reports ok=false when no secret is
// configured.
func NewSecretProvider(load func() (string, bool)) *SecretProvider {
	return &SecretProvider{load: load}
}

// Secret returns the secret and whether one is configured. The returned
// slice must not be modified.
func (p *SecretProvider) Secret() ([]byte, bool) {
	p.once.Do(func() {
		s, ok := p.load()
		if ok && s != "" {
			p.secret = []byte(s)
			p.ok = true
		}
	})
	return p.secret, p.ok
}
