package prescription

import "strings"

// AcuityClass is the coarse patient-risk bucket that selects safety bounds.
type AcuityClass string

const (
	// AcuityCritical covers ICU and bedbound patients.
	AcuityCritical AcuityClass = "critical"
	// AcuityFrail covers elderly patients outside critical care.
	AcuityFrail AcuityClass = "frail"
	// AcuityGeneral covers ward and independent patients.
	AcuityGeneral AcuityClass = "general"
)

// Frail reports whether the class gets the fragile-patient dosing
// preference: shorter, more frequent sessions.
func (a AcuityClass) Frail() bool {
	return a == AcuityCritical || a == AcuityFrail
}

var criticalLevelsOfCare = map[string]bool{
	"icu": true, "intensive care": true, "intensive_care": true,
	"critical care": true, "critical_care": true, "micu": true, "sicu": true,
}

var bedboundStatuses = map[string]bool{
	"bedbound": true, "bed-bound": true, "bed_bound": true, "bedrest": true,
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ClassifyAcuity maps patient flags onto an acuity class using the
// engine's frail age.
func (e *Engine) ClassifyAcuity(pc PatientContext) AcuityClass {
	return classifyAcuity(pc, e.cfg.FrailAge)
}

func classifyAcuity(pc PatientContext, frailAge int) AcuityClass {
	if criticalLevelsOfCare[normalize(pc.LevelOfCare)] || bedboundStatuses[normalize(pc.MobilityStatus)] {
		return AcuityCritical
	}
	if pc.Age >= frailAge {
		return AcuityFrail
	}
	return AcuityGeneral
}
