// Package colors maps travel times to legend colors.
package colors

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// BucketMinutes is the width of one color bucket
	BucketMinutes = 5
	// BucketCount is the number of colors in every scheme; the last one covers 65+ minutes
	BucketCount = 14
)

// Scheme is a named, ordered set of BucketCount colors
type Scheme struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Colors      []string `json:"colors"`
}

var schemes = []Scheme{
	{
		Name:        "Green to Red",
		Description: "Classic green to red progression",
		Colors: []string{
			"#00FF00", "#32CD32", "#9ACD32", "#FFFF00", "#FFA500", "#FF8C00", "#FF4500",
			"#FF0000", "#DC143C", "#8B0000", "#800080", "#4B0082", "#000080", "#000000",
		},
	},
	{
		Name:        "Blue to Red",
		Description: "Cool blue to hot red",
		Colors: []string{
			"#0000FF", "#0066FF", "#00CCFF", "#00FFFF", "#66FF66", "#FFFF00", "#FFCC00",
			"#FF9900", "#FF6600", "#FF3300", "#FF0000", "#CC0000", "#990000", "#660000",
		},
	},
	{
		Name:        "Purple to Yellow",
		Description: "Purple to bright yellow",
		Colors: []string{
			"#800080", "#9933CC", "#CC66FF", "#FF99FF", "#FFCCFF", "#FFFFCC", "#FFFF99",
			"#FFFF66", "#FFFF33", "#FFFF00", "#FFFF00", "#FFFF00", "#FFFF00", "#FFFF00",
		},
	},
	{
		Name:        "Orange to Blue",
		Description: "Warm orange to cool blue",
		Colors: []string{
			"#FF6600", "#FF8800", "#FFAA00", "#FFCC00", "#FFEE00", "#FFFF00", "#CCFF00",
			"#99FF00", "#66FF00", "#33FF00", "#00FF00", "#00CCFF", "#0099FF", "#0066FF",
		},
	},
	{
		Name:        "Red to Green",
		Description: "Hot red to cool green",
		Colors: []string{
			"#FF0000", "#FF3300", "#FF6600", "#FF9900", "#FFCC00", "#FFFF00", "#CCFF00",
			"#99FF00", "#66FF00", "#33FF00", "#00FF00", "#00CC00", "#009900", "#006600",
		},
	},
}

// Count returns the number of available schemes
func Count() int {
	return len(schemes)
}

// Schemes returns a copy of every scheme, in index order
func Schemes() []Scheme {
	out := make([]Scheme, len(schemes))
	for i, s := range schemes {
		out[i] = Scheme{Name: s.Name, Description: s.Description, Colors: append([]string(nil), s.Colors...)}
	}
	return out
}

// ValidScheme reports whether index names a scheme
func ValidScheme(index int) bool {
	return index >= 0 && index < len(schemes)
}

// Bucket returns the color index for a travel time: floor(minutes/5), clamped to
// [0, BucketCount-1]. NaN lands in the last bucket.
func Bucket(minutes float64) int {
	if math.IsNaN(minutes) {
		return BucketCount - 1
	}
	if minutes <= 0 {
		return 0
	}
	idx := math.Floor(minutes / BucketMinutes)
	if idx >= BucketCount-1 {
		return BucketCount - 1
	}
	return int(idx)
}

// ColorFor returns the hex color for a travel time. Unknown scheme indexes use scheme 0.
func ColorFor(minutes float64, scheme int) string {
	if !ValidScheme(scheme) {
		scheme = 0
	}
	return schemes[scheme].Colors[Bucket(minutes)]
}

// ColorWithOpacity returns the bucket color as a CSS rgba() string
func ColorWithOpacity(minutes float64, scheme int, opacity float64) string {
	c, err := colorful.Hex(ColorFor(minutes, scheme))
	if err != nil {
		// palette is static; a parse failure means the table above is broken
		panic(fmt.Sprintf("colors: invalid palette entry: %v", err))
	}
	r, g, b := c.RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, formatOpacity(opacity))
}

func formatOpacity(opacity float64) string {
	opacity = math.Max(0, math.Min(1, opacity))
	return fmt.Sprint(opacity)
}
