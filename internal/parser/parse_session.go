package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/geoviewer/camsync/internal/util"
	"github.com/geoviewer/camsync/pkg/core"
)

// ParseSession parses session start data from raw args.
// Expected layout: [name, engineName, projectionSrid, gimbalThreshold, tag, addonsJSON].
// Only the name is required; missing trailing fields fall back to defaults.
func (p *Parser) ParseSession(data []string) (core.Session, error) {
	var session core.Session

	// fix received data
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}

	if len(data) < 1 || data[0] == "" {
		return session, fmt.Errorf("session name is required")
	}
	session.Name = data[0]
	session.StartTime = time.Now()
	session.ProjectionSRID = 3857
	session.GimbalThreshold = 1.0
	session.Tag = p.defaultTag

	if len(data) > 1 {
		session.EngineName = data[1]
	}

	if len(data) > 2 && data[2] != "" {
		srid, err := parseIntFromFloat(data[2])
		if err != nil {
			return session, fmt.Errorf("error parsing projection srid: %w", err)
		}
		session.ProjectionSRID = int(srid)
	}

	if len(data) > 3 && data[3] != "" {
		threshold, err := strconv.ParseFloat(data[3], 64)
		if err != nil {
			return session, fmt.Errorf("error parsing gimbal threshold: %w", err)
		}
		session.GimbalThreshold = threshold
	}

	if len(data) > 4 && data[4] != "" {
		session.Tag = data[4]
	}

	if len(data) > 5 && data[5] != "" {
		if err := json.Unmarshal([]byte(data[5]), &session.Addons); err != nil {
			return session, fmt.Errorf("error unmarshalling addons: %w", err)
		}
	}

	p.logger.Debug("Parsed session data",
		"sessionName", session.Name,
		"engineName", session.EngineName)

	return session, nil
}
