// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// One pipeline run is strictly sequential. The only concurrency inside a
// run is the supervised deadline around image analysis.
package services
