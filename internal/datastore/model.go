// model.go: persisted scan history
package datastore

import (
	"time"
)

// Scan is one diagnosed image.
type Scan struct {
	ID              uint          `gorm:"primaryKey" json:"-"`
	PublicID        string        `gorm:"size:36;uniqueIndex;not null" json:"id"`
	CreatedAt       time.Time     `gorm:"index" json:"created_at"`
	SourceNode      string        `json:"source_node"`
	Source          string        `gorm:"size:32;index" json:"source"` // cli, api, telegram
	ImageName       string        `json:"image_name"`
	ImageSHA256     string        `gorm:"size:64;index" json:"image_sha256"`
	Backend         string        `gorm:"size:32" json:"backend"`
	Crop            string        `gorm:"size:128;index:idx_scans_crop_disease" json:"crop"`
	Disease         string        `gorm:"size:191;index:idx_scans_crop_disease" json:"disease"`
	OriginalLabel   string        `json:"original_label"`
	Confidence      float64       `json:"confidence"`
	ConfidenceLevel string        `gorm:"size:16" json:"confidence_level"`
	Severity        string        `gorm:"size:16" json:"severity,omitempty"`
	Status          string        `gorm:"size:16;index" json:"status"`
	Match           string        `gorm:"size:16" json:"match"`
	ProcessingTime  time.Duration `json:"processing_time"`
	Report          string        `gorm:"type:text" json:"-"` // JSON encoded diagnosis report
	Predictions     []Prediction  `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE" json:"predictions,omitempty"`
}

// Prediction is one ranked classifier output for a Scan.
type Prediction struct {
	ID       uint    `gorm:"primaryKey" json:"-"`
	ScanID   uint    `gorm:"index;not null" json:"-"`
	Position int     `json:"rank"`
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
}

// ScanFilter narrows List results. Zero values match everything.
type ScanFilter struct {
	Crop   string
	Status string
	Since  time.Time
	Limit  int
	Offset int
}

// StatusCount is a row of Stats.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// DiseaseCount is a row of Stats.
type DiseaseCount struct {
	Crop    string `json:"crop"`
	Disease string `json:"disease"`
	Count   int64  `json:"count"`
}

// Stats summarizes scan history.
type Stats struct {
	Total       int64          `json:"total"`
	ByStatus    []StatusCount  `json:"by_status"`
	TopDiseases []DiseaseCount `json:"top_diseases"`
}
