// Package gateway is the HTTP client for the generative model service that
// backs text, image, and voice synthesis.
package gateway
