package notify

import (
	"fmt"
	"html"
	"strings"

	"padwatch/models"
)

// EmailSubject renders the subject line for one matched listing.
func EmailSubject(alert *models.Alert, listing *models.Listing) string {
	return fmt.Sprintf("New match for %s: %s at $%d", alert.Name, listing.Address, listing.Price)
}

// EmailBody renders the HTML email for one matched listing.
func EmailBody(alert *models.Alert, listing *models.Listing) string {
	var b strings.Builder

	b.WriteString("<html><body>")
	b.WriteString(fmt.Sprintf("<h2>%s</h2>", html.EscapeString(listing.Address)))
	if listing.Unit != "" {
		b.WriteString(fmt.Sprintf("<p>Unit %s</p>", html.EscapeString(listing.Unit)))
	}
	b.WriteString(fmt.Sprintf("<p><strong>$%d/mo</strong> &middot; %s &middot; %s</p>",
		listing.Price, bedsLabel(listing.Bedrooms), bathsLabel(listing.Bathrooms)))
	b.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(listing.Neighborhood)))

	if listing.NoFee {
		b.WriteString("<p>No broker fee</p>")
	}
	if line := stabilizationLine(listing); line != "" {
		b.WriteString(fmt.Sprintf("<p>%s</p>", line))
	}
	if listing.ImageURL != "" {
		b.WriteString(fmt.Sprintf(`<img src="%s" alt="listing photo" width="400">`, html.EscapeString(listing.ImageURL)))
	}
	if listing.URL != "" {
		b.WriteString(fmt.Sprintf(`<p><a href="%s">View listing</a></p>`, html.EscapeString(listing.URL)))
	}
	b.WriteString(fmt.Sprintf("<hr><p><small>Matched your alert %q</small></p>", html.EscapeString(alert.Name)))
	b.WriteString("</body></html>")

	return b.String()
}

// SMSBody renders the terse text message for one matched listing. SMS
// segments are 160 chars; one listing has to fit in roughly one segment.
func SMSBody(listing *models.Listing) string {
	msg := fmt.Sprintf("%s: $%d, %s/%s, %s",
		listing.Address, listing.Price,
		bedsShort(listing.Bedrooms), bathsShort(listing.Bathrooms),
		listing.Neighborhood)
	if listing.URL != "" {
		msg += " " + listing.URL
	}
	return msg
}

func stabilizationLine(l *models.Listing) string {
	switch l.StabilizationStatus {
	case models.StabilizationConfirmed:
		return "Likely rent stabilized (pre-1974 building, 6+ units)"
	case models.StabilizationProbable:
		if l.StabilizationProbability != nil {
			return fmt.Sprintf("Possibly rent stabilized (%.0f%% estimate)", *l.StabilizationProbability*100)
		}
		return "Possibly rent stabilized"
	default:
		return ""
	}
}

func bedsLabel(beds int) string {
	if beds == 0 {
		return "Studio"
	}
	if beds == 1 {
		return "1 bed"
	}
	return fmt.Sprintf("%d beds", beds)
}

func bathsLabel(baths float64) string {
	if baths == 1 {
		return "1 bath"
	}
	return fmt.Sprintf("%g baths", baths)
}

func bedsShort(beds int) string {
	if beds == 0 {
		return "studio"
	}
	return fmt.Sprintf("%dbr", beds)
}

func bathsShort(baths float64) string {
	return fmt.Sprintf("%gba", baths)
}
