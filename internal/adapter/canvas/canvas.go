// Package canvas renders the dashboard widget tree into an in-memory RGBA
// frame and keeps the last flushed frame as PNG.
package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	"github.com/berfenger/evccdisplay/internal/core/domain"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

type Canvas struct {
	root   *node
	nodes  map[domain.WidgetID]*node
	face   font.Face
	img    *image.RGBA
	dirty  bool
	logger *zap.Logger

	// SnapshotFile, when set, receives a copy of every flushed frame.
	SnapshotFile string

	mu      sync.RWMutex
	frame   []byte
	flushes uint64
}

func New(logger *zap.Logger) *Canvas {
	c := &Canvas{
		root:   buildDashboard(),
		nodes:  map[domain.WidgetID]*node{},
		face:   basicfont.Face7x13,
		img:    image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight)),
		dirty:  true,
		logger: logger,
	}
	c.index(c.root)
	return c
}

func (c *Canvas) index(n *node) {
	if n.id != "" {
		c.nodes[n.id] = n
	}
	for _, child := range n.children {
		c.index(child)
	}
}

func (c *Canvas) SetText(id domain.WidgetID, text string) {
	if n, ok := c.nodes[id]; ok && n.text != text {
		n.text = text
		c.dirty = true
	}
}

func (c *Canvas) SetColor(id domain.WidgetID, color domain.Color) {
	if n, ok := c.nodes[id]; ok && n.color != color {
		n.color = color
		c.dirty = true
	}
}

func (c *Canvas) SetVisible(id domain.WidgetID, visible bool) {
	if n, ok := c.nodes[id]; ok && n.visible != visible {
		n.visible = visible
		c.dirty = true
	}
}

func (c *Canvas) SetGeometry(id domain.WidgetID, rect domain.Rect) {
	if n, ok := c.nodes[id]; ok && n.rect != rect {
		n.rect = rect
		c.dirty = true
	}
}

func (c *Canvas) SetValue(id domain.WidgetID, value int) {
	value = max(0, min(100, value))
	if n, ok := c.nodes[id]; ok && n.value != value {
		n.value = value
		c.dirty = true
	}
}

func (c *Canvas) SetStriped(id domain.WidgetID, striped bool) {
	if n, ok := c.nodes[id]; ok && n.striped != striped {
		n.striped = striped
		c.dirty = true
	}
}

func (c *Canvas) Size(id domain.WidgetID) (int, int) {
	if n, ok := c.nodes[id]; ok {
		return n.rect.W, n.rect.H
	}
	return 0, 0
}

func (c *Canvas) TextWidth(_ domain.WidgetID, text string) int {
	return font.MeasureString(c.face, text).Ceil()
}

func (c *Canvas) Dirty() bool {
	return c.dirty
}

// Flush redraws the frame if any widget changed since the last flush and
// reports whether it did. The canvas stays dirty until a flush fully
// succeeds, so a failed one is retried on the next call.
func (c *Canvas) Flush() (bool, error) {
	if !c.dirty {
		return false, nil
	}
	c.draw(c.root)

	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return true, fmt.Errorf("failed to encode frame: %w", err)
	}
	c.mu.Lock()
	c.frame = buf.Bytes()
	c.flushes++
	c.mu.Unlock()
	c.logger.Debug("frame flushed", zap.Int("bytes", buf.Len()))

	if c.SnapshotFile != "" {
		if err := writeAtomic(c.SnapshotFile, buf.Bytes()); err != nil {
			return true, err
		}
	}
	c.dirty = false
	return true, nil
}

// Frame returns the last flushed frame as PNG, or nil before the first flush.
// Safe for concurrent use.
func (c *Canvas) Frame() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frame
}

func (c *Canvas) Flushes() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.flushes
}

// Text returns the current text of a widget.
func (c *Canvas) Text(id domain.WidgetID) string {
	if n, ok := c.nodes[id]; ok {
		return n.text
	}
	return ""
}

func (c *Canvas) Visible(id domain.WidgetID) bool {
	n, ok := c.nodes[id]
	return ok && n.visible
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
