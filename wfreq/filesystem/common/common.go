package common

// This package contains shared utilities and types used across the counter packages.
// It provides sentinel errors, validation helpers, per-file failure reporting
// and run metrics.

// Note: Utility types are defined in their respective files.
// Use constructors like common.NewValidationUtils() to create instances.
