// Package app assembles the long-lived objects of a reportsync process from
// a validated configuration.
//
// A process builds exactly one Cloud or one Edge at startup and passes it
// to the command that runs; nothing here is global.
package app
