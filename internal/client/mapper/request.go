package mapper

import (
	"database/sql"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
)

// RequestColumns is the wire column order used by selects and RETURNING.
var RequestColumns = []string{
	"id", "access_code", "blood_group", "patient_name", "contact_number",
	"location", "urgency", "notes", "status", "created_at",
}

// RequestRow mirrors a row of the blood_requests table.
type RequestRow struct {
	ID            string    `json:"id"`
	AccessCode    string    `json:"access_code"`
	BloodGroup    string    `json:"blood_group"`
	PatientName   *string   `json:"patient_name"`
	ContactNumber string    `json:"contact_number"`
	Location      string    `json:"location"`
	Urgency       string    `json:"urgency"`
	Notes         *string   `json:"notes"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// ScanRequest reads one row laid out as RequestColumns.
func ScanRequest(sc Scanner) (RequestRow, error) {
	var (
		r       RequestRow
		patient sql.NullString
		notes   sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.AccessCode, &r.BloodGroup, &patient, &r.ContactNumber,
		&r.Location, &r.Urgency, &notes, &r.Status, &r.CreatedAt); err != nil {
		return RequestRow{}, err
	}
	if patient.Valid {
		r.PatientName = &patient.String
	}
	if notes.Valid {
		r.Notes = &notes.String
	}
	return r, nil
}

// RequestToDomain maps a row; a missing status is read as active.
func RequestToDomain(r RequestRow) models.Request {
	status := models.RequestStatus(r.Status)
	if status == "" {
		status = models.StatusActive
	}
	return models.Request{
		ID:            r.ID,
		AccessCode:    r.AccessCode,
		BloodGroup:    models.BloodGroup(r.BloodGroup),
		PatientName:   deref(r.PatientName),
		ContactNumber: r.ContactNumber,
		Location:      r.Location,
		Urgency:       models.Urgency(r.Urgency),
		Notes:         deref(r.Notes),
		Status:        status,
		CreatedAt:     r.CreatedAt,
	}
}

func RequestToWireInsert(d models.RequestDraft) Payload {
	d = d.Normalize()
	return Payload{
		{"access_code", d.AccessCode},
		{"blood_group", string(d.BloodGroup)},
		{"patient_name", nullable(d.PatientName)},
		{"contact_number", d.ContactNumber},
		{"location", d.Location},
		{"urgency", string(d.Urgency)},
		{"notes", nullable(d.Notes)},
		{"status", string(d.Status)},
	}
}

// RequestToWireUpdate emits only the fields set on the patch.
func RequestToWireUpdate(p models.RequestPatch) Payload {
	var out Payload
	if p.BloodGroup != nil {
		out = append(out, Assignment{"blood_group", string(*p.BloodGroup)})
	}
	if p.PatientName != nil {
		out = append(out, Assignment{"patient_name", nullable(*p.PatientName)})
	}
	if p.ContactNumber != nil {
		out = append(out, Assignment{"contact_number", *p.ContactNumber})
	}
	if p.Location != nil {
		out = append(out, Assignment{"location", *p.Location})
	}
	if p.Urgency != nil {
		out = append(out, Assignment{"urgency", string(*p.Urgency)})
	}
	if p.Notes != nil {
		out = append(out, Assignment{"notes", nullable(*p.Notes)})
	}
	if p.Status != nil {
		out = append(out, Assignment{"status", string(*p.Status)})
	}
	return out
}
