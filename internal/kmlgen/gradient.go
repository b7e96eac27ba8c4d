package kmlgen

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/mazznoer/colorgrad"
	kml "github.com/twpayne/go-kml"
	"github.com/twpayne/go-kml/icon"
)

// gradSteps buckets the normalized range into styles 5% apart, 21 in total.
const gradSteps = 20

// gradientByName maps a configured gradient name to a colorgrad preset.
// Unknown names fall back to turbo.
func gradientByName(name string) colorgrad.Gradient {
	switch strings.ToLower(name) {
	case "viridis":
		return colorgrad.Viridis()
	case "plasma":
		return colorgrad.Plasma()
	case "inferno":
		return colorgrad.Inferno()
	case "rainbow":
		return colorgrad.Rainbow()
	case "rdylgn":
		return colorgrad.RdYlGn()
	case "ylorrd":
		return colorgrad.YlOrRd()
	case "reds":
		return colorgrad.Reds()
	default:
		return colorgrad.Turbo()
	}
}

// gradStyles renders the shared icon styles the camera placemarks refer to.
func gradStyles(grad colorgrad.Gradient) []kml.Element {
	styles := make([]kml.Element, 0, gradSteps+1)
	for i := 0; i <= gradSteps; i++ {
		c := grad.At(float64(i) / gradSteps)
		r, g, b, _ := c.RGBA()
		styles = append(styles, kml.SharedStyle(
			fmt.Sprintf("styleGrad%03d", i*5),
			kml.IconStyle(
				kml.Scale(0.5),
				kml.Color(color.RGBA{
					R: uint8(r >> 8),
					G: uint8(g >> 8),
					B: uint8(b >> 8),
					A: 0xa0,
				}),
				kml.Icon(
					kml.Href(icon.PaletteHref(2, 18)),
				),
			),
		))
	}
	return styles
}

// gradStyleURL picks the shared style for a normalized value in [0, 1].
func gradStyleURL(t float64) string {
	pct := int(t * 100)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return fmt.Sprintf("#styleGrad%03d", 5*(pct/5))
}
