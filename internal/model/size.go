package model

import "fmt"

// Size is a (width, height) pair.
//
// Sizes add element-wise and order lexicographically: width first, height
// only breaks ties. Window-size steps rely on this ordering.
type Size struct {
	Width  int `yaml:"w" json:"w"`
	Height int `yaml:"h" json:"h"`
}

// Add returns the element-wise sum.
func (s Size) Add(o Size) Size {
	return Size{Width: s.Width + o.Width, Height: s.Height + o.Height}
}

// Compare returns -1, 0 or 1.
func (s Size) Compare(o Size) int {
	switch {
	case s.Width < o.Width:
		return -1
	case s.Width > o.Width:
		return 1
	case s.Height < o.Height:
		return -1
	case s.Height > o.Height:
		return 1
	}
	return 0
}

func (s Size) Less(o Size) bool    { return s.Compare(o) < 0 }
func (s Size) Greater(o Size) bool { return s.Compare(o) > 0 }

func (s Size) String() string {
	return fmt.Sprintf("(%d, %d)", s.Width, s.Height)
}
