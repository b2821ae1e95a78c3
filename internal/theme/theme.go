// Package theme holds the font preference shared by every screen. A Context
// lives from start to exit and is passed explicitly; it is never persisted.
package theme

import (
	"fmt"
	"strings"
	"sync"
)

type Font string

const (
	System    Font = "System"
	Roboto    Font = "Roboto"
	Monospace Font = "Monospace"
)

// Option is one entry of the font picker.
type Option struct {
	Font  Font
	Label string
}

var options = []Option{
	{System, "Mặc định"},
	{Roboto, "Roboto"},
	{Monospace, "Monospace"},
}

// Options returns the picker entries in display order.
func Options() []Option {
	return append([]Option(nil), options...)
}

// ParseFont accepts a font name in any case.
func ParseFont(s string) (Font, error) {
	for _, o := range options {
		if strings.EqualFold(string(o.Font), strings.TrimSpace(s)) {
			return o.Font, nil
		}
	}
	return "", fmt.Errorf("unknown font %q", s)
}

// Family resolves f to the font family name for a platform.
func (f Font) Family(platform string) string {
	if f == Monospace {
		if strings.EqualFold(platform, "ios") {
			return "Menlo"
		}
		return "monospace"
	}
	return string(f)
}

func (f Font) Label() string {
	for _, o := range options {
		if o.Font == f {
			return o.Label
		}
	}
	return string(f)
}

// Context is the current font selection. It is safe for concurrent use.
type Context struct {
	mu       sync.RWMutex
	font     Font
	platform string
}

func NewContext(font Font, platform string) *Context {
	if _, err := ParseFont(string(font)); err != nil {
		font = System
	}
	return &Context{font: font, platform: platform}
}

func (c *Context) Font() Font {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.font
}

func (c *Context) SetFont(f Font) error {
	f, err := ParseFont(string(f))
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.font = f
	c.mu.Unlock()
	return nil
}

// Family is the resolved family of the current font.
func (c *Context) Family() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.font.Family(c.platform)
}
