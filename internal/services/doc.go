// Package services defines the failure taxonomy shared by every pipeline
// stage and the classification helpers the orchestrator uses to decide
// between retrying, failing immediately, and surfacing a stable error code.
package services
