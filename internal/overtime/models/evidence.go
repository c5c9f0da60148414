package models

// EvidenceType is the capture event an evidence record belongs to.
type EvidenceType string

const (
	EvidenceStart EvidenceType = "start"
	EvidenceEnd   EvidenceType = "end"
)

func (t EvidenceType) IsValid() bool {
	return t == EvidenceStart || t == EvidenceEnd
}

// LocationSource tags how a location was obtained.
type LocationSource string

const (
	SourceGPS    LocationSource = "gps"
	SourceManual LocationSource = "manual"
)

func (s LocationSource) IsValid() bool {
	return s == SourceGPS || s == SourceManual
}

// Photo describes captured image proof. The bytes themselves live elsewhere;
// Hash is the hex SHA-256 digest of them.
type Photo struct {
	URL        string `json:"url"`
	Hash       string `json:"hash"`
	Size       int64  `json:"size"`
	Width      *int   `json:"width,omitempty"`
	Height     *int   `json:"height,omitempty"`
	CapturedAt string `json:"capturedAt"`
	MimeType   string `json:"mimeType"`
}

// Location is a reported position with its accuracy radius.
type Location struct {
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	AccuracyM float64        `json:"accuracyM"`
	Timestamp string         `json:"timestamp"`
	Source    LocationSource `json:"source"`
}

// EvidenceRecord is the normalized proof for one capture event. The geofence
// flags are always derived server-side.
type EvidenceRecord struct {
	Type            EvidenceType `json:"type"`
	Photo           *Photo       `json:"photo,omitempty"`
	Location        *Location    `json:"location,omitempty"`
	InGeofence      bool         `json:"inGeofence"`
	LowAccuracy     bool         `json:"lowAccuracy"`
	RiskOutOfBounds bool         `json:"riskOutOfBounds"`
	SiteID          *string      `json:"siteId"`
}

// EvidencePayload is the raw capture submitted for one event.
type EvidencePayload struct {
	Type     EvidenceType `json:"type"`
	Photo    *Photo       `json:"photo,omitempty"`
	Location *Location    `json:"location,omitempty"`
}

func (r EvidenceRecord) clone() EvidenceRecord {
	out := r
	if r.Photo != nil {
		p := *r.Photo
		if r.Photo.Width != nil {
			w := *r.Photo.Width
			p.Width = &w
		}
		if r.Photo.Height != nil {
			h := *r.Photo.Height
			p.Height = &h
		}
		out.Photo = &p
	}
	if r.Location != nil {
		l := *r.Location
		out.Location = &l
	}
	if r.SiteID != nil {
		s := *r.SiteID
		out.SiteID = &s
	}
	return out
}
