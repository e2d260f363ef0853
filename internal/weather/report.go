package weather

import "strings"

const (
	reportSubject = "Weather Report"
	reportIntro   = "Here is the weather report:\n\n"

	// accountPrefix marks record ids of account records, whose contacts
	// receive the report.
	accountPrefix = "001"
)

// Report targets.
const (
	TargetContacts = "contacts"
	TargetAllUsers = "all_users"
)

// BuildReport renders the report for the given display state. Weather lines
// are only added when an observation is present.
func BuildReport(d Display, hasObservation bool) ReportDraft {
	var b strings.Builder
	b.WriteString(reportIntro)
	if hasObservation {
		b.WriteString("Temperature: " + d.Temperature + "°C\n")
		b.WriteString("Humidity: " + d.Humidity + "%\n")
		b.WriteString("Weather Condition: " + d.WeatherCondition + "\n")
	}
	return ReportDraft{Subject: reportSubject, Body: b.String()}
}

// IsAccountRecord reports whether the id belongs to an account record.
func IsAccountRecord(recordID string) bool {
	return strings.HasPrefix(recordID, accountPrefix)
}

// ReportTarget picks the recipient group for a record id.
func ReportTarget(recordID string) string {
	if IsAccountRecord(recordID) {
		return TargetContacts
	}
	return TargetAllUsers
}
