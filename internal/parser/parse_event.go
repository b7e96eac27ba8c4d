package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/geoviewer/camsync/internal/util"
	"github.com/geoviewer/camsync/pkg/core"
)

// ParseGeneralEvent parses a free-form session annotation.
// Expected layout: [frame, name, message, extraDataJSON?].
func (p *Parser) ParseGeneralEvent(data []string) (core.GeneralEvent, error) {
	var thisEvent core.GeneralEvent

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 3 {
		return thisEvent, fmt.Errorf("insufficient data fields: got %d, need 3", len(data))
	}

	// get frame
	frame, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return thisEvent, fmt.Errorf("error converting frame to int: %w", err)
	}

	thisEvent.Time = time.Now()
	thisEvent.Frame = uint(frame)
	thisEvent.Name = data[1]
	thisEvent.Message = data[2]

	// get extra event data
	if len(data) > 3 && data[3] != "" {
		err = json.Unmarshal([]byte(data[3]), &thisEvent.ExtraData)
		if err != nil {
			return thisEvent, fmt.Errorf("error unmarshalling extra data: %w", err)
		}
	}

	return thisEvent, nil
}
