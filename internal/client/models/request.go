package models

import "time"

// Urgency grades how quickly a request must be served.
type Urgency string

const (
	UrgencyNormal   Urgency = "Normal"
	UrgencyUrgent   Urgency = "Urgent"
	UrgencyCritical Urgency = "Critical"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyCritical:
		return true
	}
	return false
}

// RequestStatus is the lifecycle state of a blood request.
type RequestStatus string

const (
	StatusActive    RequestStatus = "active"
	StatusFulfilled RequestStatus = "fulfilled"
	StatusNotNeeded RequestStatus = "notNeeded"
	StatusDeceased  RequestStatus = "deceased"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusActive, StatusFulfilled, StatusNotNeeded, StatusDeceased:
		return true
	}
	return false
}

// Terminal reports whether the request has left the active state.
func (s RequestStatus) Terminal() bool {
	return s.Valid() && s != StatusActive
}

// CanTransitionTo reports whether a request in state s may move to next.
// Once terminal, a request never becomes active again.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	if !next.Valid() {
		return false
	}
	if s.Terminal() {
		return next != StatusActive
	}
	return true
}

// Request is a blood request filed under an access code. Several requests
// may share one code.
type Request struct {
	ID            string        `json:"id"`
	AccessCode    string        `json:"accessCode"`
	BloodGroup    BloodGroup    `json:"bloodGroup"`
	PatientName   string        `json:"patientName,omitempty"`
	ContactNumber string        `json:"contactNumber"`
	Location      string        `json:"location"`
	Urgency       Urgency       `json:"urgency"`
	Notes         string        `json:"notes,omitempty"`
	Status        RequestStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func (r Request) GetID() string           { return r.ID }
func (r Request) GetAccessCode() string   { return r.AccessCode }
func (r Request) GetCreatedAt() time.Time { return r.CreatedAt }

// RequestDraft carries the caller-supplied fields of a new request.
// An empty Status means active.
type RequestDraft struct {
	AccessCode    string
	BloodGroup    BloodGroup
	PatientName   string
	ContactNumber string
	Location      string
	Urgency       Urgency
	Notes         string
	Status        RequestStatus
}

// Normalize returns a copy with the access code normalized and defaults set.
func (d RequestDraft) Normalize() RequestDraft {
	d.AccessCode = NormalizeAccessCode(d.AccessCode)
	if d.Status == "" {
		d.Status = StatusActive
	}
	if d.Urgency == "" {
		d.Urgency = UrgencyNormal
	}
	return d
}

// Optimistic builds the locally displayed entity for a pending insert.
func (d RequestDraft) Optimistic(id string, now time.Time) Request {
	d = d.Normalize()
	return Request{
		ID:            id,
		AccessCode:    d.AccessCode,
		BloodGroup:    d.BloodGroup,
		PatientName:   d.PatientName,
		ContactNumber: d.ContactNumber,
		Location:      d.Location,
		Urgency:       d.Urgency,
		Notes:         d.Notes,
		Status:        d.Status,
		CreatedAt:     now,
	}
}

// RequestPatch is a partial request update; nil fields are left unchanged.
type RequestPatch struct {
	BloodGroup    *BloodGroup
	PatientName   *string
	ContactNumber *string
	Location      *string
	Urgency       *Urgency
	Notes         *string
	Status        *RequestStatus
}

// StatusPatch is shorthand for a patch that only changes the status.
func StatusPatch(s RequestStatus) RequestPatch {
	return RequestPatch{Status: &s}
}

func (p RequestPatch) Empty() bool {
	return p.BloodGroup == nil && p.PatientName == nil && p.ContactNumber == nil &&
		p.Location == nil && p.Urgency == nil && p.Notes == nil && p.Status == nil
}

// Apply returns r with the patch applied.
func (p RequestPatch) Apply(r Request) Request {
	r.PatientName = optional(p.PatientName, r.PatientName)
	r.ContactNumber = optional(p.ContactNumber, r.ContactNumber)
	r.Location = optional(p.Location, r.Location)
	r.Notes = optional(p.Notes, r.Notes)
	if p.BloodGroup != nil {
		r.BloodGroup = *p.BloodGroup
	}
	if p.Urgency != nil {
		r.Urgency = *p.Urgency
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	return r
}
