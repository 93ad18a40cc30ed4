package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
)

func (a *App) AddDonor(ctx context.Context) error {
	draft, err := a.donorDraft()
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	d, err := a.donors.Create(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Donor registered. Your access code is %s; keep it to edit or delete the profile.\n", d.AccessCode)
	return nil
}

func (a *App) donorDraft() (models.DonorDraft, error) {
	var d models.DonorDraft
	var err error

	if d.FullName, err = GetRequiredText(a.reader, "Enter full name", "full name", a.out); err != nil {
		return d, err
	}
	if d.PhoneNumber, err = GetRequiredText(a.reader, "Enter phone number", "phone number", a.out); err != nil {
		return d, err
	}
	if d.BloodGroup, err = a.bloodGroup(); err != nil {
		return d, err
	}
	if d.City, err = GetRequiredText(a.reader, "Enter city", "city", a.out); err != nil {
		return d, err
	}
	if d.Notes, err = GetSimpleText(a.reader, "Enter notes (optional)", a.out); err != nil {
		return d, err
	}
	if d.AccessCode, err = GetSimpleText(a.reader, "Enter access code (empty to generate one)", a.out); err != nil {
		return d, err
	}
	return d, nil
}

func (a *App) AddRequest(ctx context.Context) error {
	draft, err := a.requestDraft()
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	r, err := a.requests.Create(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Request %s filed. Your access code is %s.\n", r.ID, r.AccessCode)
	return nil
}

func (a *App) requestDraft() (models.RequestDraft, error) {
	var d models.RequestDraft
	var err error

	if d.BloodGroup, err = a.bloodGroup(); err != nil {
		return d, err
	}
	if d.PatientName, err = GetSimpleText(a.reader, "Enter patient name (optional)", a.out); err != nil {
		return d, err
	}
	if d.ContactNumber, err = GetRequiredText(a.reader, "Enter contact number", "contact number", a.out); err != nil {
		return d, err
	}
	if d.Location, err = GetRequiredText(a.reader, "Enter hospital or location", "location", a.out); err != nil {
		return d, err
	}
	urgency, err := GetSimpleText(a.reader, "Enter urgency (Normal, Urgent, Critical; empty for Normal)", a.out)
	if err != nil {
		return d, err
	}
	if d.Urgency, err = parseUrgency(urgency); err != nil {
		return d, err
	}
	if d.Notes, err = GetSimpleText(a.reader, "Enter notes (optional)", a.out); err != nil {
		return d, err
	}
	if d.AccessCode, err = GetSimpleText(a.reader, "Enter access code (empty to generate one)", a.out); err != nil {
		return d, err
	}
	return d, nil
}

func (a *App) bloodGroup() (models.BloodGroup, error) {
	s, err := GetSimpleText(a.reader, "Enter blood group ("+joinGroups()+")", a.out)
	if err != nil {
		return "", err
	}
	g := models.BloodGroup(strings.ToUpper(s))
	if !g.Valid() {
		return "", fmt.Errorf("unknown blood group %q", s)
	}
	return g, nil
}

func joinGroups() string {
	names := make([]string, len(models.BloodGroups))
	for i, g := range models.BloodGroups {
		names[i] = string(g)
	}
	return strings.Join(names, ", ")
}

func parseUrgency(s string) (models.Urgency, error) {
	if s == "" {
		return models.UrgencyNormal, nil
	}
	for _, u := range []models.Urgency{models.UrgencyNormal, models.UrgencyUrgent, models.UrgencyCritical} {
		if strings.EqualFold(s, string(u)) {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown urgency %q", s)
}

func parseStatus(s string) (models.RequestStatus, error) {
	for _, st := range []models.RequestStatus{models.StatusActive, models.StatusFulfilled, models.StatusNotNeeded, models.StatusDeceased} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}
