// internal/models/enums.go
package models

// PermitType is the class of CITES permit being applied for.
type PermitType string

const (
	PermitImport              PermitType = "import"
	PermitExport              PermitType = "export"
	PermitReexport            PermitType = "reexport"
	PermitIntroductionFromSea PermitType = "introduction_from_sea"
)

func (p PermitType) IsValid() bool {
	switch p {
	case PermitImport, PermitExport, PermitReexport, PermitIntroductionFromSea:
		return true
	}
	return false
}

// Status is the application lifecycle state.
type Status string

const (
	StatusPending      Status = "pending"
	StatusUnderReview  Status = "under_review"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusRequiresInfo Status = "requires_info"
)

// InitialStatus is assigned at creation.
const InitialStatus = StatusPending

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected, StatusRequiresInfo:
		return true
	}
	return false
}

// CITESAppendix is the protection tier of the species.
type CITESAppendix string

const (
	AppendixI   CITESAppendix = "I"
	AppendixII  CITESAppendix = "II"
	AppendixIII CITESAppendix = "III"
)

func (a CITESAppendix) IsValid() bool {
	switch a {
	case AppendixI, AppendixII, AppendixIII:
		return true
	}
	return false
}

// Purpose is the declared purpose of the transaction.
type Purpose string

const (
	PurposeCommercialResearch Purpose = "commercial research"
	PurposeScientificResearch Purpose = "scientific research"
	PurposeEducational        Purpose = "educational"
	PurposeBreeding           Purpose = "breeding in captivity"
	PurposePersonal           Purpose = "personal"
	PurposeOther              Purpose = "other"
)

func (p Purpose) IsValid() bool {
	switch p {
	case PurposeCommercialResearch, PurposeScientificResearch, PurposeEducational,
		PurposeBreeding, PurposePersonal, PurposeOther:
		return true
	}
	return false
}

// SourceCode is the CITES source-of-specimen code.
type SourceCode string

const (
	SourceWild            SourceCode = "W"
	SourceCaptiveBred     SourceCode = "C"
	SourceCaptiveBredAppI SourceCode = "D"
	SourceArtificial      SourceCode = "A"
	SourceCaptiveBorn     SourceCode = "F"
	SourceRanched         SourceCode = "R"
	SourcePreConvention   SourceCode = "O"
	SourceConfiscated     SourceCode = "I"
	SourceUnknown         SourceCode = "U"
)

func (s SourceCode) IsValid() bool {
	switch s {
	case SourceWild, SourceCaptiveBred, SourceCaptiveBredAppI, SourceArtificial,
		SourceCaptiveBorn, SourceRanched, SourcePreConvention, SourceConfiscated, SourceUnknown:
		return true
	}
	return false
}
