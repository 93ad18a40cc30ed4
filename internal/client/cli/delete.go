package cli

import (
	"context"
	"fmt"
)

// accessCode returns code, prompting for it without echo when empty.
func (a *App) accessCode(code string) (string, error) {
	if code != "" {
		return code, nil
	}
	code, err := GetSecret(a.reader, "Enter access code", a.out)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", fmt.Errorf("access code is required")
	}
	return code, nil
}

func (a *App) requestID(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	return GetRequiredText(a.reader, "Enter request id", "request id", a.out)
}

func (a *App) SetStatus(ctx context.Context, id, status string) error {
	id, err := a.requestID(id)
	if err != nil {
		return err
	}
	if status == "" {
		if status, err = GetRequiredText(a.reader, "Enter new status (active, fulfilled, notNeeded, deceased)", "status", a.out); err != nil {
			return err
		}
	}
	st, err := parseStatus(status)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	r, err := a.requests.UpdateStatus(ctx, id, st)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Request %s is now %s.\n", r.ID, r.Status)
	return nil
}

func (a *App) DeleteRequest(ctx context.Context, id string) error {
	id, err := a.requestID(id)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	if err := a.requests.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Request %s deleted.\n", id)
	return nil
}

func (a *App) DeleteDonor(ctx context.Context, code string) error {
	code, err := a.accessCode(code)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	if err := a.donors.Delete(ctx, code); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Donor profile deleted.")
	return nil
}
