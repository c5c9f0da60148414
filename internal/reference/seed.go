package reference

import "otapproval/internal/geofence"

func float(v float64) *float64 { return &v }

// NewSeededCatalog returns a catalog loaded with the bundled demo data.
func NewSeededCatalog() *Catalog {
	return NewCatalog(SeedCompanies(), SeedJobs(), SeedSites())
}

func SeedCompanies() []Company {
	return []Company{
		{ID: "c-acme", Code: "ACM", Name: "Acme Corp", LogoURL: "https://images.unsplash.com/photo-1504384308090-c894fdcc538d", HREmail: "hr@acme.test"},
		{ID: "c-sun", Code: "SUN", Name: "Sunshine Industrial", LogoURL: "https://images.unsplash.com/photo-1520607162513-77705c0f0d4a", HREmail: "people@sunshine.test"},
		{ID: "c-nova", Code: "NOV", Name: "Nova Tech Labs", LogoURL: "https://images.unsplash.com/photo-1454165205744-3b78555e5572", HREmail: "talent@novatech.test"},
	}
}

func SeedJobs() []Job {
	return []Job{
		{ID: "j-acme-engi", CompanyID: "c-acme", JobCode: "ENG-2024", JobName: "Software Engineer", Active: true},
		{ID: "j-acme-ops", CompanyID: "c-acme", JobCode: "OPS-010", JobName: "Operations Specialist", Active: true},
		{ID: "j-sun-site", CompanyID: "c-sun", JobCode: "PLT-778", JobName: "Plant Technician", Active: true},
		{ID: "j-nova-rd", CompanyID: "c-nova", JobCode: "RND-555", JobName: "R&D Scientist", Active: true},
	}
}

func SeedSites() []geofence.Site {
	return []geofence.Site{
		{ID: "site-acme-bkk", CompanyID: "c-acme", Name: "Acme HQ Bangkok", GeofenceType: geofence.ShapeCircle, CenterLat: float(13.7563), CenterLng: float(100.5018), RadiusM: float(120)},
		{ID: "site-sun-rayong", CompanyID: "c-sun", Name: "Sunshine Plant Rayong", GeofenceType: geofence.ShapeCircle, CenterLat: float(12.7074), CenterLng: float(101.1474), RadiusM: float(200)},
		{ID: "site-nova-chiangmai", CompanyID: "c-nova", Name: "Nova Research Center", GeofenceType: geofence.ShapeCircle, CenterLat: float(18.7883), CenterLng: float(98.9853), RadiusM: float(150)},
	}
}
