package parser

import (
	"fmt"
	"strconv"

	"github.com/geoviewer/camsync/internal/util"
	"github.com/geoviewer/camsync/pkg/core"
)

// ParseView parses an engine view readout into an AbstractView.
// Expected layout: [lon, lat, altitude, tilt, heading, range], all in
// EPSG:4326 degrees / meters as reported by the engine.
func (p *Parser) ParseView(data []string) (core.AbstractView, error) {
	var view core.AbstractView

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 6 {
		return view, fmt.Errorf("insufficient data fields: got %d, need 6", len(data))
	}

	// [0] lon
	lon, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return view, fmt.Errorf("error parsing lon: %w", err)
	}
	view.LookAt.Lon = lon

	// [1] lat
	lat, err := strconv.ParseFloat(data[1], 64)
	if err != nil {
		return view, fmt.Errorf("error parsing lat: %w", err)
	}
	view.LookAt.Lat = lat

	// [2] altitude
	view.Altitude, err = strconv.ParseFloat(data[2], 64)
	if err != nil {
		return view, fmt.Errorf("error parsing altitude: %w", err)
	}

	// [3] tilt
	view.Tilt, err = strconv.ParseFloat(data[3], 64)
	if err != nil {
		return view, fmt.Errorf("error parsing tilt: %w", err)
	}

	// [4] heading
	view.Heading, err = strconv.ParseFloat(data[4], 64)
	if err != nil {
		return view, fmt.Errorf("error parsing heading: %w", err)
	}

	// [5] range
	view.Range, err = strconv.ParseFloat(data[5], 64)
	if err != nil {
		return view, fmt.Errorf("error parsing range: %w", err)
	}

	return view, nil
}
