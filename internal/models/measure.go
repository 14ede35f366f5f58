package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Measure is a canonical SI scalar or the unknown sentinel. The zero value is unknown.
type Measure struct {
	Value float64
	Known bool
}

func Unknown() Measure {
	return Measure{}
}

func Known(v float64) Measure {
	return Measure{Value: v, Known: true}
}

// Positive reports whether the measure is known and strictly greater than zero.
func (m Measure) Positive() bool {
	return m.Known && m.Value > 0
}

func (m Measure) String() string {
	if !m.Known {
		return NotAvailable
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Known {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(m.Value)
}

// ParseMeasure reads back a value rendered by Measure.String.
func ParseMeasure(s string) Measure {
	s = strings.TrimSpace(s)
	if !IsKnown(s) {
		return Unknown()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Unknown()
	}
	return Known(v)
}

type VolumeSource string

const (
	VolumeFromSpecification    VolumeSource = "specification"
	VolumeEstimatedFromDensity VolumeSource = "estimated-from-density"
	VolumeCalculated           VolumeSource = "calculated"
)

const (
	densitySuffix    = " m3 (Est. from density)"
	calculatedSuffix = " m3 (Calculated)"
)

// Volume is a cubic-meter measure tagged with how it was obtained.
type Volume struct {
	Measure
	Source VolumeSource
}

func SpecifiedVolume(m Measure) Volume {
	if !m.Known {
		return Volume{}
	}
	return Volume{Measure: m, Source: VolumeFromSpecification}
}

func EstimatedVolume(v float64) Volume {
	return Volume{Measure: Known(v), Source: VolumeEstimatedFromDensity}
}

func CalculatedVolume(v float64) Volume {
	return Volume{Measure: Known(v), Source: VolumeCalculated}
}

func (v Volume) String() string {
	if !v.Known {
		return NotAvailable
	}
	switch v.Source {
	case VolumeEstimatedFromDensity:
		return fmt.Sprintf("%.4f", v.Value) + densitySuffix
	case VolumeCalculated:
		return fmt.Sprintf("%.6f", v.Value) + calculatedSuffix
	default:
		return v.Measure.String()
	}
}

// MarshalJSON always emits the rendered string, the same form the store and exports use.
func (v Volume) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// ParseVolume reads back a value rendered by Volume.String.
func ParseVolume(s string) Volume {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasSuffix(s, densitySuffix):
		if m := ParseMeasure(strings.TrimSuffix(s, densitySuffix)); m.Known {
			return EstimatedVolume(m.Value)
		}
	case strings.HasSuffix(s, calculatedSuffix):
		if m := ParseMeasure(strings.TrimSuffix(s, calculatedSuffix)); m.Known {
			return CalculatedVolume(m.Value)
		}
	default:
		return SpecifiedVolume(ParseMeasure(s))
	}
	return Volume{}
}
