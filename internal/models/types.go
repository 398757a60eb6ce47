package models

import "time"

const Unclassified = "unclassified"

type TodoRecord struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"-"`
	Content   string    `json:"content"`
	Completed bool      `json:"completed"`
	UpdatedAt int64     `json:"updated_at"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
}

func (t TodoRecord) Timestamp() int64 { return t.UpdatedAt }

type CountdownRecord struct {
	ID         int64     `json:"id"`
	OwnerID    string    `json:"-"`
	Title      string    `json:"title"`
	TargetTime time.Time `json:"target_time"`
	UpdatedAt  int64     `json:"updated_at"`
	Deleted    bool      `json:"deleted"`
	CreatedAt  time.Time `json:"created_at"`
}

func (c CountdownRecord) Timestamp() int64 { return c.UpdatedAt }

// UsageSample is a device's own daily counter for one application. Pushing a
// sample replaces the stored counter for the same key.
type UsageSample struct {
	OwnerID    string `json:"-" db:"owner_id"`
	DeviceName string `json:"device" db:"device_name"`
	Day        string `json:"day" db:"record_date"`
	AppID      string `json:"app_id" db:"app_id"`
	Duration   int64  `json:"duration" db:"duration"`
}

type IdentityMapping struct {
	AppID         string `json:"app_id" db:"app_id" yaml:"app_id" toml:"app_id"`
	CanonicalName string `json:"canonical_name" db:"canonical_name" yaml:"canonical_name" toml:"canonical_name"`
	Category      string `json:"category" db:"category" yaml:"category" toml:"category"`
}

type UsageSummary struct {
	CanonicalName string `json:"canonical_name"`
	Category      string `json:"category"`
	Device        string `json:"device"`
	Duration      int64  `json:"duration"`
}

type LeaderboardEntry struct {
	ID       int64     `json:"-" db:"id"`
	OwnerID  string    `json:"-" db:"owner_id"`
	Username string    `json:"username" db:"username"`
	Score    int64     `json:"score" db:"score"`
	Duration int64     `json:"duration" db:"duration"`
	PlayedAt time.Time `json:"played_at" db:"played_at"`
}
