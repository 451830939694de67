package gowait

import (
	"context"
	"encoding/json"
)

// Marshaler defines abstract bytes serialization format.
type Marshaler func(interface{}) ([]byte, error)

// DefaultMarshaler defines default serialization format marshaler.
// By default DefaultMarshaler is set to use `json.Marshal`.
var DefaultMarshaler Marshaler = json.Marshal

// Unmarshaler defines abstract bytes deserialization format.
type Unmarshaler func([]byte, interface{}) error

// DefaultUnmarshaler defines default serialization format unmarshaler.
// By default DefaultUnmarshaler is set to use `json.Unmarshal`.
var DefaultUnmarshaler Unmarshaler = json.Unmarshal

// MarshalReports serializes provided bench reports.
func (m Marshaler) MarshalReports(_ context.Context, reports []Report) ([]byte, error) {
	return m(reports)
}

// UnmarshalReports deserializes provided bench reports.
func (um Unmarshaler) UnmarshalReports(_ context.Context, data []byte) ([]Report, error) {
	var reports []Report
	if err := um(data, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}
