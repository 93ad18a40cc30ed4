package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
)

const dateLayout = "2006-01-02 15:04"

// pendingMark flags rows the remote store has not confirmed yet.
func pendingMark(id string) string {
	if models.IsTemporaryID(id) {
		return "*"
	}
	return " "
}

func formatDonorLine(d models.Donor) string {
	return fmt.Sprintf("%s%-4s %-24s %-16s %s", pendingMark(d.ID), d.BloodGroup, d.FullName, d.City, d.PhoneNumber)
}

func formatRequestLine(r models.Request) string {
	line := fmt.Sprintf("%s%s  %-4s %-9s %-10s %s, %s", pendingMark(r.ID), r.ID, r.BloodGroup, r.Urgency, r.Status, r.Location, r.ContactNumber)
	if r.PatientName != "" {
		line += " (" + r.PatientName + ")"
	}
	return line
}

func formatDonor(d models.Donor) string {
	var sb strings.Builder
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%-12s %s\n", name+":", value)
		}
	}
	field("Name", d.FullName)
	field("Blood group", string(d.BloodGroup))
	field("Phone", d.PhoneNumber)
	field("City", d.City)
	field("Notes", d.Notes)
	field("Picture", d.ProfilePicture)
	field("Registered", d.CreatedAt.In(time.Local).Format(dateLayout))
	return strings.TrimRight(sb.String(), "\n")
}
