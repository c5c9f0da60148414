// Package evidence turns raw capture payloads into evidence records with
// server-derived geofence flags.
package evidence

import (
	"otapproval/internal/geofence"
	"otapproval/internal/overtime/models"
	dErrors "otapproval/pkg/domain-errors"
)

// Assembler validates capture payloads and evaluates them against sites.
type Assembler struct {
	lowAccuracyThresholdM float64
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLowAccuracyThreshold overrides the accuracy radius, in meters, above
// which a location is flagged as low accuracy.
func WithLowAccuracyThreshold(meters float64) Option {
	return func(a *Assembler) {
		if meters > 0 {
			a.lowAccuracyThresholdM = meters
		}
	}
}

func New(opts ...Option) *Assembler {
	a := &Assembler{lowAccuracyThresholdM: geofence.DefaultLowAccuracyThresholdM}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble validates payload and derives its geofence flags against sites.
// Sites are evaluated in the order given; the first containing circle wins.
// Without a location the record is outside every geofence and has no site.
func (a *Assembler) Assemble(payload models.EvidencePayload, sites []geofence.Site) (models.EvidenceRecord, error) {
	if payload.Photo != nil {
		photo := *payload.Photo
		payload.Photo = &photo
	}
	if payload.Location != nil {
		location := *payload.Location
		payload.Location = &location
	}
	payload.Normalize()
	if err := dErrors.Validation(payload.FieldErrors()); err != nil {
		return models.EvidenceRecord{}, err
	}

	record := models.EvidenceRecord{Type: payload.Type, Photo: payload.Photo}
	if payload.Location == nil {
		return record, nil
	}

	location := payload.Location
	record.Location = location
	result := geofence.Evaluate(&geofence.Point{Lat: location.Lat, Lng: location.Lng}, sites)
	record.InGeofence = result.Inside
	record.SiteID = result.SiteID
	record.RiskOutOfBounds = !result.Inside
	record.LowAccuracy = geofence.IsLowAccuracy(location.AccuracyM, a.lowAccuracyThresholdM)
	return record, nil
}
