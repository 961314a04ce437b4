package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"laundrmate/internal/models"
	"laundrmate/internal/view"
)

func displayEmail(s *models.Session) string {
	if s.Email != "" {
		return s.Email
	}
	return "unknown"
}

func printBookings(w io.Writer, list []models.Booking) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No bookings.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLAUNDRY\tSTATUS\tSCHEDULED\tSERVICE\tPRICE")
	for _, b := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, laundryLabel(b), b.Status, when(b), orDash(b.ServiceType), priceLabel(b.Price))
	}
	_ = tw.Flush()
}

func printBooking(w io.Writer, b models.Booking, actions []models.Status) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Booking\t#%d\n", b.ID)
	fmt.Fprintf(tw, "Laundry\t%s\n", laundryLabel(b))
	if b.Laundry != nil && b.Laundry.Address != nil {
		fmt.Fprintf(tw, "Address\t%s\n", *b.Laundry.Address)
	}
	fmt.Fprintf(tw, "Status\t%s\n", b.Status)
	fmt.Fprintf(tw, "Scheduled\t%s\n", when(b))
	fmt.Fprintf(tw, "Service\t%s\n", orDash(b.ServiceType))
	fmt.Fprintf(tw, "Notes\t%s\n", orDash(b.Notes))
	fmt.Fprintf(tw, "Price\t%s\n", priceLabel(b.Price))
	if len(actions) > 0 {
		names := make([]string, 0, len(actions))
		for _, s := range actions {
			names = append(names, actionName(s))
		}
		fmt.Fprintf(tw, "Actions\t%s\n", strings.Join(names, ", "))
	}
	_ = tw.Flush()
}

func printLaundries(w io.Writer, list []models.Laundry) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No laundries.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tDESCRIPTION")
	for _, l := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", l.ID, l.Name, orDash(l.Address), l.Description)
	}
	_ = tw.Flush()
}

func printCounts(w io.Writer, rows []view.LaundryCount, total int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LAUNDRY\tTOTAL\tPENDING\tCONFIRMED\tCANCELLED")
	for _, r := range rows {
		name := r.Laundry.Name
		if name == "" {
			name = fmt.Sprintf("#%d", r.Laundry.ID)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", name, r.Total,
			r.ByStatus[models.StatusPending], r.ByStatus[models.StatusConfirmed], r.ByStatus[models.StatusCancelled])
	}
	fmt.Fprintf(tw, "All\t%d\t\t\t\n", total)
	_ = tw.Flush()
}

func actionName(s models.Status) string {
	switch s {
	case models.StatusConfirmed:
		return "confirm"
	case models.StatusCancelled:
		return "cancel"
	case models.StatusPending:
		return "reopen"
	}
	return string(s)
}

func laundryLabel(b models.Booking) string {
	if b.Laundry != nil && b.Laundry.Name != "" {
		return b.Laundry.Name
	}
	return fmt.Sprintf("#%d", b.LaundryID)
}

func when(b models.Booking) string {
	if b.ScheduledAt == nil {
		return "-"
	}
	return b.ScheduledAt.Local().Format("2006-01-02 15:04")
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func priceLabel(d *models.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
