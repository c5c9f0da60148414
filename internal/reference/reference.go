// Package reference holds the company, job, and site catalog that OT requests
// refer to. It is read-mostly and seeded at startup.
package reference

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"otapproval/internal/geofence"
	"otapproval/pkg/platform/sentinel"
)

// MaxSearchResults caps autocomplete responses.
const MaxSearchResults = 8

type Company struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl,omitempty"`
	HREmail string `json:"hrEmail"`
}

type Job struct {
	ID        string `json:"id"`
	CompanyID string `json:"companyId"`
	JobCode   string `json:"jobCode"`
	JobName   string `json:"jobName"`
	Active    bool   `json:"active"`
}

// Option is an autocomplete entry.
type Option struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code,omitempty"`
}

// Catalog is an in-memory reference data source.
type Catalog struct {
	mu        sync.RWMutex
	companies []Company
	jobs      []Job
	sites     []geofence.Site
}

func NewCatalog(companies []Company, jobs []Job, sites []geofence.Site) *Catalog {
	return &Catalog{
		companies: append([]Company(nil), companies...),
		jobs:      append([]Job(nil), jobs...),
		sites:     append([]geofence.Site(nil), sites...),
	}
}

// FindCompany returns a copy of the company with the given id.
func (c *Catalog) FindCompany(_ context.Context, companyID string) (*Company, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, company := range c.companies {
		if company.ID == companyID {
			found := company
			return &found, nil
		}
	}
	return nil, fmt.Errorf("company not found: %w", sentinel.ErrNotFound)
}

// FindJob returns a copy of the job with the given id.
func (c *Catalog) FindJob(_ context.Context, jobID string) (*Job, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, job := range c.jobs {
		if job.ID == jobID {
			found := job
			return &found, nil
		}
	}
	return nil, fmt.Errorf("job not found: %w", sentinel.ErrNotFound)
}

// SitesByCompany returns the company's sites in declaration order. Order
// matters to geofence evaluation, where the first match wins.
func (c *Catalog) SitesByCompany(_ context.Context, companyID string) []geofence.Site {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sites := make([]geofence.Site, 0)
	for _, site := range c.sites {
		if site.CompanyID == companyID {
			sites = append(sites, site)
		}
	}
	return sites
}

// SearchCompanies matches name or code case-insensitively. An empty query
// matches everything.
func (c *Catalog) SearchCompanies(_ context.Context, query string) []Option {
	normalized := strings.ToLower(strings.TrimSpace(query))
	c.mu.RLock()
	defer c.mu.RUnlock()
	results := make([]Option, 0, MaxSearchResults)
	for _, company := range c.companies {
		if len(results) == MaxSearchResults {
			break
		}
		if normalized != "" &&
			!strings.Contains(strings.ToLower(company.Name), normalized) &&
			!strings.Contains(strings.ToLower(company.Code), normalized) {
			continue
		}
		results = append(results, Option{
			ID:          company.ID,
			Label:       company.Name,
			Description: company.Code,
			Code:        company.Code,
		})
	}
	return results
}

// SearchJobs matches active jobs by code or name, optionally scoped to a
// company.
func (c *Catalog) SearchJobs(_ context.Context, companyID, query string) []Option {
	normalized := strings.ToLower(strings.TrimSpace(query))
	c.mu.RLock()
	defer c.mu.RUnlock()
	results := make([]Option, 0, MaxSearchResults)
	for _, job := range c.jobs {
		if len(results) == MaxSearchResults {
			break
		}
		if !job.Active || (companyID != "" && job.CompanyID != companyID) {
			continue
		}
		if normalized != "" &&
			!strings.Contains(strings.ToLower(job.JobCode), normalized) &&
			!strings.Contains(strings.ToLower(job.JobName), normalized) {
			continue
		}
		results = append(results, Option{
			ID:          job.ID,
			Label:       job.JobCode,
			Description: job.JobName,
			Code:        job.JobCode,
		})
	}
	return results
}
