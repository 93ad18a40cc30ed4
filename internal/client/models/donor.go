package models

import "time"

// Donor is a registered blood donor. Optional fields use "" for absent.
type Donor struct {
	ID             string     `json:"id"`
	AccessCode     string     `json:"accessCode"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	FullName       string     `json:"fullName"`
	PhoneNumber    string     `json:"phoneNumber"`
	BloodGroup     BloodGroup `json:"bloodGroup"`
	City           string     `json:"city"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (d Donor) GetID() string           { return d.ID }
func (d Donor) GetAccessCode() string   { return d.AccessCode }
func (d Donor) GetCreatedAt() time.Time { return d.CreatedAt }

// DonorDraft carries the caller-supplied fields of a new donor.
type DonorDraft struct {
	AccessCode     string
	ProfilePicture string
	FullName       string
	PhoneNumber    string
	BloodGroup     BloodGroup
	City           string
	Notes          string
}

// Normalize returns a copy with the access code normalized.
func (d DonorDraft) Normalize() DonorDraft {
	d.AccessCode = NormalizeAccessCode(d.AccessCode)
	return d
}

// Optimistic builds the locally displayed entity for a pending insert.
func (d DonorDraft) Optimistic(id string, now time.Time) Donor {
	return Donor{
		ID:             id,
		AccessCode:     NormalizeAccessCode(d.AccessCode),
		ProfilePicture: d.ProfilePicture,
		FullName:       d.FullName,
		PhoneNumber:    d.PhoneNumber,
		BloodGroup:     d.BloodGroup,
		City:           d.City,
		Notes:          d.Notes,
		CreatedAt:      now,
	}
}

// DonorPatch is a partial donor update; nil fields are left unchanged.
// A pointer to "" clears an optional field.
type DonorPatch struct {
	ProfilePicture *string
	FullName       *string
	PhoneNumber    *string
	BloodGroup     *BloodGroup
	City           *string
	Notes          *string
}

// Empty reports whether the patch changes nothing.
func (p DonorPatch) Empty() bool {
	return p.ProfilePicture == nil && p.FullName == nil && p.PhoneNumber == nil &&
		p.BloodGroup == nil && p.City == nil && p.Notes == nil
}

// Apply returns d with the patch applied.
func (p DonorPatch) Apply(d Donor) Donor {
	d.ProfilePicture = optional(p.ProfilePicture, d.ProfilePicture)
	d.FullName = optional(p.FullName, d.FullName)
	d.PhoneNumber = optional(p.PhoneNumber, d.PhoneNumber)
	d.City = optional(p.City, d.City)
	d.Notes = optional(p.Notes, d.Notes)
	if p.BloodGroup != nil {
		d.BloodGroup = *p.BloodGroup
	}
	return d
}
