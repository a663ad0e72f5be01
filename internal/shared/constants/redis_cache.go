package constants

import "time"

// Redis Cache Configuration
// This file centralizes all Redis keys used by the seat inventory service.
// Pattern: ticketing:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

// Semi-Static Data (changes when a catalog is edited)
const (
	TTL_SEMI_STATIC_QUICK = 10 * time.Minute // tier catalogs
)

// Highly Dynamic (real-time sensitive)
const (
	TTL_REALTIME_SHORT = 30 * time.Second // seat stats
	TTL_REALTIME_QUICK = 5 * time.Second  // seat maps
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "ticketing"
)

// ================== SEATS MODULE ==================

const (
	CACHE_KEY_SEAT_MAP   = CACHE_PREFIX + ":seats:map:event:"   // + event-id
	CACHE_KEY_SEAT_STATS = CACHE_PREFIX + ":seats:stats:event:" // + event-id
	CACHE_PATTERN_SEATS  = CACHE_PREFIX + ":seats:*"
)

const (
	TTL_SEAT_MAP   = TTL_REALTIME_QUICK
	TTL_SEAT_STATS = TTL_REALTIME_SHORT
)

// ================== PRICING MODULE ==================

const (
	CACHE_KEY_TIERS_EVENT = CACHE_PREFIX + ":pricing:effective:event:" // + event-id
	CACHE_KEY_TIERS_VENUE = CACHE_PREFIX + ":pricing:catalog:venue:"   // + venue-id
	CACHE_PATTERN_TIERS   = CACHE_PREFIX + ":pricing:*"
)

const (
	TTL_TIERS = TTL_SEMI_STATIC_QUICK
)

// ================== HOLDS MODULE ==================

const (
	LOCK_KEY_SWEEPER = CACHE_PREFIX + ":holds:sweeper:lock"
)

// ================== KEY BUILDERS ==================

func BuildSeatMapKey(eventID string) string {
	return CACHE_KEY_SEAT_MAP + eventID
}

func BuildSeatStatsKey(eventID string) string {
	return CACHE_KEY_SEAT_STATS + eventID
}

func BuildEventTiersKey(eventID string) string {
	return CACHE_KEY_TIERS_EVENT + eventID
}

func BuildVenueTiersKey(venueID string) string {
	return CACHE_KEY_TIERS_VENUE + venueID
}

