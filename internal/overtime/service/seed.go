package service

import (
	"context"
	"time"

	"otapproval/internal/overtime/models"
	"otapproval/pkg/requestcontext"
)

const (
	sampleApprover = "alicia@acme.test"
	sampleDuration = 4 * time.Hour
)

// SeedSample stores one approved demo request for Acme when the store is
// empty. No approval tokens are minted for it.
func (s *Service) SeedSample(ctx context.Context) (*models.Request, error) {
	if s.requests.Count(ctx) > 0 {
		return nil, nil
	}
	end := requestcontext.Now(ctx).UTC()
	start := end.Add(-sampleDuration)

	request, err := s.create(ctx, &models.SubmitRequest{
		CompanyID:     "c-acme",
		JobID:         "j-acme-engi",
		StartAt:       start.Format(time.RFC3339),
		EndAt:         end.Format(time.RFC3339),
		EmployeeName:  "Ethan Carter",
		EmployeeTitle: "Engineer",
		EmployeeEmail: "ethan@acme.test",
		ManagerName:   "Alicia Keys",
		ManagerTitle:  "Project Lead",
		ManagerEmail:  sampleApprover,
		Note:          "Project deadline",
		Consent:       true,
		ProofConsent:  true,
		Evidences: []models.EvidencePayload{
			{
				Type: models.EvidenceStart,
				Location: &models.Location{
					Lat: 13.7563, Lng: 100.5018, AccuracyM: 18,
					Timestamp: start.Format(time.RFC3339),
					Source:    models.SourceGPS,
				},
			},
			{
				Type: models.EvidenceEnd,
				Location: &models.Location{
					Lat: 13.7565, Lng: 100.502, AccuracyM: 22,
					Timestamp: end.Format(time.RFC3339),
					Source:    models.SourceGPS,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return s.UpdateStatus(ctx, request.ID, models.StatusApproved, sampleApprover, "")
}
