// Package session remembers the last location and results of a conversation.
package session

import (
	"context"
	"fmt"
	"time"
)

// Record is the state kept between turns of one conversation.
type Record struct {
	Key         string   `dynamodbav:"sessionId"`
	Latitude    float64  `dynamodbav:"lat"`
	Longitude   float64  `dynamodbav:"lng"`
	StationIDs  []string `dynamodbav:"stationIds"`
	SpokenText  string   `dynamodbav:"spokenText"`
	LastUpdated int64    `dynamodbav:"lastUpdated"`
	TTL         int64    `dynamodbav:"ttl"`
}

func (r *Record) Validate() error {
	if r.Key == "" {
		return fmt.Errorf("session key is required")
	}
	if r.Latitude < -90 || r.Latitude > 90 || r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("invalid location: %f,%f", r.Latitude, r.Longitude)
	}
	return nil
}

// Store loads and saves records. Load returns nil, nil for unknown or
// expired keys.
type Store interface {
	Load(ctx context.Context, key string) (*Record, error)
	Save(ctx context.Context, key string, record Record) error
}

type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Selector routes verified users to durable storage and guests to memory.
type Selector struct {
	Verified Store
	Guest    Store
}

func (s Selector) For(verified bool) Store {
	if verified && s.Verified != nil {
		return s.Verified
	}
	return s.Guest
}
