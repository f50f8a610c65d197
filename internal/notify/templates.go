// internal/notify/templates.go
package notify

import (
	"fmt"
	"strings"
	"time"

	"cites-permits/internal/models"
	"cites-permits/internal/outbox"
)

// statusMessages are the applicant-facing explanations used by the
// status-update template.
var statusMessages = map[models.Status]string{
	models.StatusPending:      "Your application is being reviewed.",
	models.StatusUnderReview:  "Your application is currently under detailed review.",
	models.StatusApproved:     "Congratulations! Your permit has been approved.",
	models.StatusRejected:     "Unfortunately, your application has been rejected.",
	models.StatusRequiresInfo: "Additional information is required for your application.",
}

func loadTemplates() map[outbox.Template]map[string]string {
	return map[outbox.Template]map[string]string{
		outbox.TemplateApplicantConfirmation: {
			"subject": "CITES Permit Application Confirmation",
			"body": "Dear {{firstName}} {{lastName}},\n\n" +
				"We have successfully received your CITES permit application.\n\n" +
				"Application ID: {{applicationId}}\n" +
				"Permit Type: {{permitType}}\n" +
				"Species: {{commonName}} ({{scientificName}})\n" +
				"CITES Appendix: {{citesAppendix}}\n" +
				"Quantity: {{quantity}}\n" +
				"Purpose: {{purpose}}\n" +
				"Origin: {{originCountry}}\n" +
				"Destination: {{destinationCountry}}\n" +
				"Submission Date: {{submissionDate}}\n\n" +
				"What happens next?\n" +
				"Your application will be reviewed by our specialists. Processing " +
				"typically takes 5-10 business days. You will receive email updates " +
				"on status changes. Keep your Application ID for reference.\n\n" +
				"If you have any questions, please contact us with your application " +
				"ID: {{applicationId}}\n\n" +
				"Best regards,\nCITES Permit Division",
		},
		outbox.TemplateAdminNotification: {
			"subject": "New CITES Permit Application Submitted",
			"body": "A new CITES permit application has been submitted and requires review.\n\n" +
				"Application ID: {{applicationId}}\n" +
				"Applicant: {{firstName}} {{lastName}}\n" +
				"Organization: {{organization}}\n" +
				"Email: {{email}}\n" +
				"Phone: {{phone}}\n" +
				"Address: {{address}}\n\n" +
				"Permit Type: {{permitType}}\n" +
				"Species: {{commonName}} ({{scientificName}})\n" +
				"CITES Appendix: {{citesAppendix}}\n" +
				"Quantity: {{quantity}}\n" +
				"Purpose: {{purpose}}\n" +
				"Source Code: {{sourceCode}}\n\n" +
				"Origin: {{originCountry}}\n" +
				"Destination: {{destinationCountry}}\n" +
				"Transport Method: {{transportMethod}}\n" +
				"Port of Entry: {{portOfEntry}}\n" +
				"Documents Submitted: {{documentCount}}\n" +
				"Submission Date: {{submissionDate}}\n\n" +
				"Please review and process this application in the admin portal.",
		},
		outbox.TemplateStatusUpdate: {
			"subject": "CITES Permit Application Status Update - {{statusUpper}}",
			"body": "Dear {{firstName}} {{lastName}},\n\n" +
				"There has been an update to your CITES permit application status.\n\n" +
				"Application ID: {{applicationId}}\n" +
				"Current Status: {{statusUpper}}\n" +
				"Species: {{commonName}} ({{scientificName}})\n" +
				"Last Updated: {{lastUpdated}}\n\n" +
				"Status Message: {{statusMessage}}\n" +
				"{{notesLine}}" +
				"If you have any questions about this update, please contact us " +
				"with your application ID: {{applicationId}}\n\n" +
				"Best regards,\nCITES Permit Division",
		},
	}
}

// ConfirmationPayload builds the template data for the applicant
// confirmation of a fresh submission.
func ConfirmationPayload(app *models.Application) map[string]interface{} {
	return map[string]interface{}{
		"applicationId":      app.ID,
		"firstName":          app.ApplicantInfo.FirstName,
		"lastName":           app.ApplicantInfo.LastName,
		"permitType":         string(app.PermitType),
		"commonName":         app.Species.CommonName,
		"scientificName":     app.Species.ScientificName,
		"citesAppendix":      string(app.Species.CITESAppendix),
		"quantity":           app.Species.Quantity,
		"purpose":            string(app.Species.Purpose),
		"originCountry":      app.Shipment.OriginCountry,
		"destinationCountry": app.Shipment.DestinationCountry,
		"submissionDate":     app.SubmissionDate.UTC().Format(time.RFC1123),
	}
}

// AdminPayload builds the template data for the reviewer notification.
func AdminPayload(app *models.Application) map[string]interface{} {
	organization := app.ApplicantInfo.Organization
	if organization == "" {
		organization = "N/A"
	}
	addr := app.ApplicantInfo.Address
	address := strings.TrimSpace(fmt.Sprintf("%s, %s, %s %s, %s",
		addr.Street, addr.City, addr.State, addr.ZipCode, addr.Country))

	return map[string]interface{}{
		"applicationId":      app.ID,
		"firstName":          app.ApplicantInfo.FirstName,
		"lastName":           app.ApplicantInfo.LastName,
		"organization":       organization,
		"email":              app.ApplicantInfo.Email,
		"phone":              app.ApplicantInfo.Phone,
		"address":            address,
		"permitType":         string(app.PermitType),
		"commonName":         app.Species.CommonName,
		"scientificName":     app.Species.ScientificName,
		"citesAppendix":      string(app.Species.CITESAppendix),
		"quantity":           app.Species.Quantity,
		"purpose":            string(app.Species.Purpose),
		"sourceCode":         string(app.Species.SourceCode),
		"originCountry":      app.Shipment.OriginCountry,
		"destinationCountry": app.Shipment.DestinationCountry,
		"transportMethod":    app.Shipment.TransportMethod,
		"portOfEntry":        app.Shipment.PortOfEntry,
		"documentCount":      len(app.Documents),
		"submissionDate":     app.SubmissionDate.UTC().Format(time.RFC1123),
	}
}

// StatusUpdatePayload builds the template data for a lifecycle
// transition email.
func StatusUpdatePayload(app *models.Application) map[string]interface{} {
	notesLine := ""
	if app.Notes != "" {
		notesLine = "Additional Notes: " + app.Notes + "\n\n"
	}
	return map[string]interface{}{
		"applicationId":  app.ID,
		"firstName":      app.ApplicantInfo.FirstName,
		"lastName":       app.ApplicantInfo.LastName,
		"commonName":     app.Species.CommonName,
		"scientificName": app.Species.ScientificName,
		"statusUpper":    strings.ToUpper(string(app.Status)),
		"statusMessage":  statusMessages[app.Status],
		"notesLine":      notesLine,
		"lastUpdated":    app.LastUpdated.UTC().Format(time.RFC1123),
	}
}

// renderTemplate substitutes {{placeholder}} markers and strips any
// that have no value.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
