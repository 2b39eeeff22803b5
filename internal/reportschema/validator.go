package reportschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed report.schema.json
var reportSchemaJSON string

// ReportPayload is the v1 report document the reports collaborator delivers
// on the ingest webhook.
type ReportPayload struct {
	PayloadVersion string        `json:"payload_version"`
	ReportUUID     string        `json:"report_uuid"`
	ReportType     string        `json:"report_type"`
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	Category       string        `json:"category,omitempty"`
	LocationLabel  string        `json:"location_label,omitempty"`
	Latitude       *float64      `json:"latitude,omitempty"`
	Longitude      *float64      `json:"longitude,omitempty"`
	OccurredAt     *string       `json:"occurred_at,omitempty"`
	OwnerUUID      string        `json:"owner_uuid,omitempty"`
	Status         string        `json:"status"`
	Images         []ReportImage `json:"images,omitempty"`
}

type ReportImage struct {
	URL   string `json:"url"`
	PHash string `json:"phash,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateReportPayload checks one raw payload against the embedded v1
// schema plus semantic rules the schema cannot express, and returns the
// decoded payload.
func ValidateReportPayload(payload json.RawMessage) (*ReportPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var report ReportPayload
	if err := json.Unmarshal(normalized, &report); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&report); err != nil {
		return nil, err
	}

	return &report, nil
}

// OccurredAtTime parses the optional occurred_at field. Call only after
// validation.
func (p *ReportPayload) OccurredAtTime() *time.Time {
	if p == nil || p.OccurredAt == nil {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*p.OccurredAt))
	if err != nil {
		return nil
	}
	utc := ts.UTC()
	return &utc
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("report.schema.json", strings.NewReader(reportSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("report.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(report *ReportPayload) error {
	if report == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(report.Title) == "" {
		return fmt.Errorf("title must not be blank")
	}

	// Coordinates only make sense as a pair.
	if (report.Latitude == nil) != (report.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be provided together")
	}

	if report.OccurredAt != nil {
		occurred, err := time.Parse(time.RFC3339, strings.TrimSpace(*report.OccurredAt))
		if err != nil {
			return fmt.Errorf("occurred_at must be RFC3339: %w", err)
		}
		if occurred.After(time.Now().UTC().Add(24 * time.Hour)) {
			return fmt.Errorf("occurred_at must not be in the future")
		}
	}

	for i, image := range report.Images {
		if _, err := url.ParseRequestURI(strings.TrimSpace(image.URL)); err != nil {
			return fmt.Errorf("images[%d].url is not a valid URI: %w", i, err)
		}
	}

	return nil
}
