package vision

import (
	"fmt"
	"image"
)

// Config holds screen capture settings for live board recognition
type Config struct {
	CaptureRegion CaptureRegion `json:"capture_region" yaml:"capture_region"`
	Display       int           `json:"display" yaml:"display"` // Display index used when the region is empty
}

// CaptureRegion defines the screen area holding the board
type CaptureRegion struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// ToRectangle converts CaptureRegion to image.Rectangle
func (cr CaptureRegion) ToRectangle() image.Rectangle {
	return image.Rect(cr.X, cr.Y, cr.X+cr.Width, cr.Y+cr.Height)
}

// IsZero reports whether no region was configured
func (cr CaptureRegion) IsZero() bool {
	return cr == CaptureRegion{}
}

// DefaultConfig returns default vision configuration
func DefaultConfig() *Config {
	return &Config{
		CaptureRegion: CaptureRegion{
			X:      100,
			Y:      100,
			Width:  BoardPixels,
			Height: BoardPixels,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Display < 0 {
		return fmt.Errorf("invalid display index: %d", c.Display)
	}
	if c.CaptureRegion.IsZero() {
		return nil
	}
	if c.CaptureRegion.Width <= 0 || c.CaptureRegion.Height <= 0 {
		return fmt.Errorf("invalid capture region dimensions: %dx%d",
			c.CaptureRegion.Width, c.CaptureRegion.Height)
	}
	if c.CaptureRegion.X < 0 || c.CaptureRegion.Y < 0 {
		return fmt.Errorf("invalid capture region origin: (%d,%d)",
			c.CaptureRegion.X, c.CaptureRegion.Y)
	}
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Vision Config:\n"+
			"  Capture Region: (%d,%d) %dx%d\n"+
			"  Display: %d\n",
		c.CaptureRegion.X, c.CaptureRegion.Y,
		c.CaptureRegion.Width, c.CaptureRegion.Height,
		c.Display,
	)
}
