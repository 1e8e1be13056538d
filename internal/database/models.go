package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// License gates access to named capabilities. A license is usable only while
// Active is true; it is deactivated rather than deleted.
type License struct {
	Key       uuid.UUID `gorm:"type:uuid;primaryKey" json:"key"`
	Name      string    `gorm:"size:100" json:"name"`
	Active    bool      `gorm:"default:true" json:"active"`
	Apis      []Api     `gorm:"many2many:license_apis" json:"apis,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the license key when the caller did not.
func (l *License) BeforeCreate(*gorm.DB) error {
	if l.Key == uuid.Nil {
		l.Key = uuid.New()
	}
	return nil
}

// Api is a named capability a License may grant.
type Api struct {
	gorm.Model
	Name   string `gorm:"uniqueIndex;size:100" json:"name"`
	Active bool   `gorm:"default:true" json:"active"`
}

// Website is a tracked site owned by a License. TotalVisits only ever grows.
type Website struct {
	gorm.Model
	LicenseKey  *uuid.UUID `gorm:"type:uuid;index" json:"license_key,omitempty"`
	Name        string     `gorm:"size:100" json:"name"`
	URL         string     `gorm:"size:512" json:"url"`
	LastVisit   time.Time  `json:"last_visit"`
	TotalVisits int64      `gorm:"default:0" json:"total_visits"`
	Locations   []Location `json:"locations,omitempty"`
}

// Location aggregates visits from one (country, city, zip, ip) tuple against
// one website. The composite unique index is what makes find-or-create an
// upsert instead of a racy read-then-write.
type Location struct {
	gorm.Model
	WebsiteID   uint           `gorm:"uniqueIndex:idx_location_tuple" json:"-"`
	Country     string         `gorm:"size:50;uniqueIndex:idx_location_tuple" json:"country"`
	City        string         `gorm:"size:100;uniqueIndex:idx_location_tuple" json:"city"`
	Zip         string         `gorm:"size:100;uniqueIndex:idx_location_tuple" json:"zip"`
	IPAddress   string         `gorm:"size:100;uniqueIndex:idx_location_tuple" json:"ip_address"`
	TotalVisits int64          `gorm:"default:0" json:"total_visits"`
	Raw         datatypes.JSON `gorm:"type:jsonb" json:"-"`
}

// CompanyTrack records one job application. The tracker ID is mailed out
// inside the resume link; the first GET against it flips Opened.
type CompanyTrack struct {
	TrackerID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"tracker_id"`
	CompanyName    string     `gorm:"size:100" json:"company_name"`
	AppliedDate    time.Time  `json:"applied_date"`
	Opened         bool       `gorm:"default:false" json:"opened"`
	Country        string     `gorm:"size:50" json:"country"`
	City           string     `gorm:"size:100" json:"city"`
	Position       string     `gorm:"size:100" json:"position"`
	URL            string     `gorm:"type:text" json:"url"`
	OpenedDate     *time.Time `json:"opened_date,omitempty"`
	Note           string     `gorm:"type:text" json:"note"`
	ResumeKey      string     `gorm:"size:512" json:"-"`
	ResumeFileName string     `gorm:"size:255" json:"resume_file_name,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (t *CompanyTrack) BeforeCreate(*gorm.DB) error {
	if t.TrackerID == uuid.Nil {
		t.TrackerID = uuid.New()
	}
	if t.AppliedDate.IsZero() {
		t.AppliedDate = time.Now()
	}
	return nil
}

// Resume is an uploaded site resume. The row with IsPrimary set (oldest row
// as a fallback) is the one served to anonymous requests.
type Resume struct {
	gorm.Model
	ObjectKey   string `gorm:"size:512" json:"-"`
	FileName    string `gorm:"size:255" json:"file_name"`
	ContentType string `gorm:"size:128" json:"content_type"`
	IsPrimary   bool   `gorm:"default:false" json:"is_primary"`
}

// Contact is one contact-form submission. Immutable once created.
type Contact struct {
	gorm.Model
	Name    string `gorm:"size:100" json:"name"`
	Email   string `gorm:"size:255" json:"email"`
	Message string `gorm:"type:text" json:"message"`
}

// Blog is a post whose content may embed images hosted externally.
type Blog struct {
	gorm.Model
	Title    string      `gorm:"size:255" json:"title"`
	Slug     string      `gorm:"uniqueIndex;size:255" json:"slug"`
	Content  string      `gorm:"type:text" json:"content"`
	Active   bool        `gorm:"default:false" json:"active"`
	Approved bool        `gorm:"default:false" json:"approved"`
	Images   []BlogImage `json:"-"`
}

// BlogImage ties one externally hosted asset to its blog post.
type BlogImage struct {
	gorm.Model
	BlogID    uint   `gorm:"index" json:"-"`
	ObjectKey string `gorm:"size:512" json:"object_key"`
	URL       string `gorm:"size:512" json:"url"`
}

// Operator is an admin account for the operator API.
type Operator struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:64"`
	PasswordHash string `gorm:"size:255"`
}
