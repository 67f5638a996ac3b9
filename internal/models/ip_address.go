package models

import "gorm.io/datatypes"

// IPAddress records an address a user has been seen from, with geolocation when available.
// Records created after a failed lookup carry only UserID and IP.
type IPAddress struct {
	BaseModel

	UserID uint   `gorm:"not null;uniqueIndex:idx_ip_addresses_user_ip,priority:1" json:"user_id"`
	IP     string `gorm:"size:45;not null;uniqueIndex:idx_ip_addresses_user_ip,priority:2" json:"ip"`

	ISP     string `gorm:"size:255" json:"isp,omitempty"`
	Country string `gorm:"size:128" json:"country,omitempty"`
	Region  string `gorm:"size:128" json:"region,omitempty"`
	City    string `gorm:"size:128" json:"city,omitempty"`

	// Source names the locator that answered; empty for fallback records.
	Source string         `gorm:"size:32" json:"source,omitempty"`
	Raw    datatypes.JSON `json:"-"`
}

// TableName pins the table name independent of initialism handling.
func (IPAddress) TableName() string {
	return "ip_addresses"
}

// Located reports whether geolocation data was stored.
func (a IPAddress) Located() bool {
	return a.Source != ""
}
