package resize

import "math"

// PointsPerCm converts centimeters to points. The constant is fixed so that
// planned sizes match previously produced documents exactly.
const PointsPerCm = 28.3465

// CmToPoints converts a width in centimeters to points.
func CmToPoints(cm float64) float64 {
	return cm * PointsPerCm
}

// Scale returns the proportional size for an image of current size
// (width, height) resized to targetWidth. A non-positive current width is
// treated as already at the target, giving scale 1.
func Scale(width, height, targetWidth float64) (newWidth, newHeight, scale float64) {
	if width <= 0 {
		width = targetWidth
	}
	scale = targetWidth / width
	return targetWidth, height * scale, scale
}

// round3 trims float noise for display; planned sizes are sent unrounded.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
