package model

import (
	"time"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
)

// EntityCatalog is the response for GET /v1/entities: the identifiers
// known to each loaded dataset.
type EntityCatalog struct {
	Suppliers  []string `json:"suppliers"`
	Plants     []string `json:"plants"`
	Warehouses []string `json:"warehouses"`
	SKUs       []string `json:"skus"`
	Routes     []string `json:"routes"`
	Regions    []string `json:"regions"`
}

// DatasetStatus reports whether one dataset has enough history to forecast.
type DatasetStatus struct {
	Module     Module `json:"module"`
	Rows       int    `json:"rows"`
	Sufficient bool   `json:"sufficient"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status   string          `json:"status"`
	Version  string          `json:"version"`
	Postgres string          `json:"postgres,omitempty"`
	Datasets []DatasetStatus `json:"datasets"`
	Uptime   int64           `json:"uptime_seconds"`
}
