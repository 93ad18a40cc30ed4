package mapper

import (
	"database/sql"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
)

// DonorColumns is the wire column order used by selects and RETURNING.
var DonorColumns = []string{
	"id", "access_code", "profile_picture", "full_name", "phone_number",
	"blood_group", "city", "notes", "created_at",
}

// DonorRow mirrors a row of the donors table.
type DonorRow struct {
	ID             string    `json:"id"`
	AccessCode     string    `json:"access_code"`
	ProfilePicture *string   `json:"profile_picture"`
	FullName       string    `json:"full_name"`
	PhoneNumber    string    `json:"phone_number"`
	BloodGroup     string    `json:"blood_group"`
	City           string    `json:"city"`
	Notes          *string   `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}

// ScanDonor reads one row laid out as DonorColumns.
func ScanDonor(sc Scanner) (DonorRow, error) {
	var (
		r       DonorRow
		picture sql.NullString
		notes   sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.AccessCode, &picture, &r.FullName, &r.PhoneNumber,
		&r.BloodGroup, &r.City, &notes, &r.CreatedAt); err != nil {
		return DonorRow{}, err
	}
	if picture.Valid {
		r.ProfilePicture = &picture.String
	}
	if notes.Valid {
		r.Notes = &notes.String
	}
	return r, nil
}

func DonorToDomain(r DonorRow) models.Donor {
	return models.Donor{
		ID:             r.ID,
		AccessCode:     r.AccessCode,
		ProfilePicture: deref(r.ProfilePicture),
		FullName:       r.FullName,
		PhoneNumber:    r.PhoneNumber,
		BloodGroup:     models.BloodGroup(r.BloodGroup),
		City:           r.City,
		Notes:          deref(r.Notes),
		CreatedAt:      r.CreatedAt,
	}
}

func DonorToWireInsert(d models.DonorDraft) Payload {
	return Payload{
		{"access_code", models.NormalizeAccessCode(d.AccessCode)},
		{"profile_picture", nullable(d.ProfilePicture)},
		{"full_name", d.FullName},
		{"phone_number", d.PhoneNumber},
		{"blood_group", string(d.BloodGroup)},
		{"city", d.City},
		{"notes", nullable(d.Notes)},
	}
}

// DonorToWireUpdate emits only the fields set on the patch.
func DonorToWireUpdate(p models.DonorPatch) Payload {
	var out Payload
	if p.ProfilePicture != nil {
		out = append(out, Assignment{"profile_picture", nullable(*p.ProfilePicture)})
	}
	if p.FullName != nil {
		out = append(out, Assignment{"full_name", *p.FullName})
	}
	if p.PhoneNumber != nil {
		out = append(out, Assignment{"phone_number", *p.PhoneNumber})
	}
	if p.BloodGroup != nil {
		out = append(out, Assignment{"blood_group", string(*p.BloodGroup)})
	}
	if p.City != nil {
		out = append(out, Assignment{"city", *p.City})
	}
	if p.Notes != nil {
		out = append(out, Assignment{"notes", nullable(*p.Notes)})
	}
	return out
}
