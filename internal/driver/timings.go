package driver

import (
	"encoding/json"
	"fmt"

	"spvregular/internal/diag"
	"spvregular/internal/observ"
)

type timingPayload struct {
	Kind     string                 `json:"kind"`
	Path     string                 `json:"path,omitempty"`
	TotalMS  float64                `json:"total_ms"`
	Phases   []observ.PhaseReport   `json:"phases"`
	Counters []observ.CounterReport `json:"counters,omitempty"`
}

func appendTimingDiagnostic(bag *diag.Bag, payload timingPayload) {
	if bag == nil {
		return
	}
	if payload.Kind == "" {
		payload.Kind = "file"
	}
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)
	if payload.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, payload.Path)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	entry := diag.New(diag.SevInfo, diag.ObsTimings, diag.NoLocation, msg).
		WithNote(diag.NoLocation, string(data))

	if bag.Add(entry) {
		return
	}
	overflow := diag.NewBag(bag.Len() + 1)
	overflow.Add(entry)
	bag.Merge(overflow)
}
