package types

import "time"

// CertificateType is one of the five certificate slots a student can fill.
type CertificateType string

const (
	CertificateBSC   CertificateType = "bsc"
	CertificateMSC   CertificateType = "msc"
	CertificateHSC   CertificateType = "hsc"
	CertificateSSC   CertificateType = "ssc"
	CertificateIELTS CertificateType = "ielts"
)

// CertificateTypes lists all slots in display order.
var CertificateTypes = []CertificateType{
	CertificateBSC,
	CertificateMSC,
	CertificateHSC,
	CertificateSSC,
	CertificateIELTS,
}

// Valid reports whether c names a known certificate slot.
func (c CertificateType) Valid() bool {
	switch c {
	case CertificateBSC, CertificateMSC, CertificateHSC, CertificateSSC, CertificateIELTS:
		return true
	}
	return false
}

// Certificate is one uploaded academic document.
type Certificate struct {
	Type       CertificateType `json:"type"`
	URL        string          `json:"url"`
	ObjectKey  string          `json:"-"`
	UploadedAt time.Time       `json:"uploaded_at"`
}

// AcademicInfo groups a student's uploaded certificates keyed by slot.
type AcademicInfo struct {
	UserID       string                           `json:"user_id"`
	Certificates map[CertificateType]*Certificate `json:"certificates"`
}
