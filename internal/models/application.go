// internal/models/application.go
package models

import "time"

// Address is the applicant postal address.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// ApplicantInfo identifies the person or organization applying for a permit.
// Every notification template draws on these fields.
type ApplicantInfo struct {
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Organization string  `json:"organization,omitempty"`
	Address      Address `json:"address"`
}

// Species describes the specimen the permit covers.
type Species struct {
	ScientificName string        `json:"scientificName"`
	CommonName     string        `json:"commonName"`
	CITESAppendix  CITESAppendix `json:"citesAppendix"`
	Quantity       int           `json:"quantity"`
	Purpose        Purpose       `json:"purpose"`
	SourceCode     SourceCode    `json:"sourceCode"`
	Description    string        `json:"description,omitempty"`
}

// ShipmentDetails describes the planned movement of the specimen.
// Optional fields may be absent.
type ShipmentDetails struct {
	OriginCountry        string     `json:"originCountry"`
	DestinationCountry   string     `json:"destinationCountry"`
	TransportMethod      string     `json:"transportMethod,omitempty"`
	ExpectedShipmentDate *time.Time `json:"expectedShipmentDate,omitempty"`
	ActualShipmentDate   *time.Time `json:"actualShipmentDate,omitempty"`
	PortOfEntry          string     `json:"portOfEntry,omitempty"`
}

// Document is an attachment reference. Entries are never removed from an
// application record even if the stored file is later deleted.
type Document struct {
	StorageID    string    `json:"storageId"`
	URL          string    `json:"url"`
	OriginalName string    `json:"originalName"`
	Format       string    `json:"format,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// StatusHistoryEntry is an append-only snapshot of the state an
// application was in immediately before a transition.
type StatusHistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

// Application is the central permit-request entity.
type Application struct {
	ID             string               `json:"id"`
	ApplicantInfo  ApplicantInfo        `json:"applicantInfo"`
	PermitType     PermitType           `json:"permitType"`
	Species        Species              `json:"species"`
	Shipment       ShipmentDetails      `json:"shipmentDetails"`
	Documents      []Document           `json:"documents,omitempty"`
	Status         Status               `json:"status"`
	StatusHistory  []StatusHistoryEntry `json:"statusHistory"`
	Notes          string               `json:"notes,omitempty"`
	SubmissionDate time.Time            `json:"submissionDate"`
	LastUpdated    time.Time            `json:"lastUpdated"`
}

// SubmissionData is a fully validated application payload, as produced
// by the validation collaborator. The submission workflow trusts it.
type SubmissionData struct {
	ApplicantInfo ApplicantInfo   `json:"applicantInfo"`
	PermitType    PermitType      `json:"permitType"`
	Species       Species         `json:"species"`
	Shipment      ShipmentDetails `json:"shipmentDetails"`
	Documents     []Document      `json:"documents,omitempty"`
}

// Receipt is returned to the client after a successful submission.
type Receipt struct {
	ApplicationNumber string    `json:"applicationNumber"`
	Status            Status    `json:"status"`
	SubmittedAt       time.Time `json:"submittedAt"`
}
