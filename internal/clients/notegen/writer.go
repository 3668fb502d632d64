package notegen

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
)

// WriterDeliverer prints deliveries as JSON lines instead of posting them.
type WriterDeliverer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterDeliverer(w io.Writer) *WriterDeliverer {
	return &WriterDeliverer{w: w}
}

type writtenSection struct {
	Kind        string               `json:"kind"`
	EncounterID string               `json:"encounter_id"`
	LastSection bool                 `json:"last_section"`
	Result      domain.SectionResult `json:"result"`
}

type writtenPatient struct {
	Kind        string             `json:"kind"`
	EncounterID string             `json:"encounter_id"`
	PatientInfo domain.PatientInfo `json:"patient_info"`
}

func (d *WriterDeliverer) Deliver(ctx context.Context, del Delivery) Receipt {
	return d.write(writtenSection{Kind: "section", EncounterID: del.EncounterID, LastSection: del.LastSection, Result: del.Result})
}

func (d *WriterDeliverer) SendPatientInfo(ctx context.Context, encounterID, clinicID string, info domain.PatientInfo) Receipt {
	return d.write(writtenPatient{Kind: "patient_info", EncounterID: encounterID, PatientInfo: info})
}

func (d *WriterDeliverer) write(v any) Receipt {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := json.NewEncoder(d.w).Encode(v); err != nil {
		return Receipt{Attempts: 1, Error: err.Error()}
	}
	return Receipt{Success: true, Attempts: 1}
}
