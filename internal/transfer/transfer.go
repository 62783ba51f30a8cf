// Package transfer imports and exports the four-field schedule record.
//
// Export writes the in-memory record verbatim, valid or not. Import is
// field-tolerant: each known field is applied only when its value has the
// right shape, anything else is skipped. A payload that cannot be parsed at
// all is rejected as a whole.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
)

// Format selects the export encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Field names of the transferable record
const (
	FieldStartDate    = "startDate"
	FieldLightHours   = "lightHours"
	FieldDarkHours    = "darkHours"
	FieldDurationDays = "durationDays"
)

// ParseFormat maps a user supplied name to a Format; empty means JSON
func ParseFormat(name string) (Format, error) {
	switch name {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q", name)
}

// Export encodes all four fields of rec
func Export(rec domain.Record, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		out, err := yaml.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return out, nil
	default:
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(out, '\n'), nil
	}
}

// Result is the outcome of an import
type Result struct {
	Record  domain.Record
	Applied []string // fields taken from the payload, in payload order
}

// Import merges payload (JSON or YAML) into live.
// On ErrMalformedImportPayload the returned record is live, unchanged.
func Import(live domain.Record, payload []byte, loc *time.Location) (Result, error) {
	fields, err := parseMapping(payload)
	if err != nil {
		return Result{Record: live}, err
	}

	res := Result{Record: live}
	for i := 0; i+1 < len(fields.Content); i += 2 {
		key, val := fields.Content[i].Value, fields.Content[i+1]

		switch key {
		case FieldStartDate:
			s, ok := stringValue(val)
			if !ok {
				continue
			}
			if _, err := domain.ParseStart(s, loc); err != nil {
				continue
			}
			res.Record.StartDate = s
		case FieldLightHours:
			f, ok := floatValue(val)
			if !ok {
				continue
			}
			res.Record.LightHours = f
		case FieldDarkHours:
			f, ok := floatValue(val)
			if !ok {
				continue
			}
			res.Record.DarkHours = f
		case FieldDurationDays:
			n, ok := intValue(val)
			if !ok {
				continue
			}
			res.Record.DurationDays = n
		default:
			continue
		}
		res.Applied = append(res.Applied, key)
	}

	return res, nil
}

// parseMapping returns the top-level mapping node of a JSON or YAML document
func parseMapping(payload []byte) (*yaml.Node, error) {
	// YAML rejects tab indentation that pretty-printed JSON may carry
	if json.Valid(payload) {
		var compact bytes.Buffer
		if err := json.Compact(&compact, payload); err == nil {
			payload = compact.Bytes()
		}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedImportPayload, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrMalformedImportPayload)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected an object", domain.ErrMalformedImportPayload)
	}
	return root, nil
}

func stringValue(n *yaml.Node) (string, bool) {
	if n.Kind != yaml.ScalarNode {
		return "", false
	}
	switch n.ShortTag() {
	case "!!str", "!!timestamp":
		return n.Value, true
	}
	return "", false
}

func floatValue(n *yaml.Node) (float64, bool) {
	if n.Kind != yaml.ScalarNode {
		return 0, false
	}
	switch n.ShortTag() {
	case "!!int", "!!float":
	default:
		return 0, false
	}

	var f float64
	if err := n.Decode(&f); err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func intValue(n *yaml.Node) (int, bool) {
	f, ok := floatValue(n)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
