package ir

// Version constants for the record schema and the service.
const (
	// SchemaVersion is the record schema version.
	SchemaVersion = "1"

	// ServiceVersion is the reportsync service version.
	ServiceVersion = "0.2.0"
)
