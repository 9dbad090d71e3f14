// Package testutil holds fixtures shared by cropdoc package tests: a fixed
// classifier and synthetic leaf images.
package testutil

import "time"

// DefaultTestTimeout bounds waits on background work in tests.
const DefaultTestTimeout = 5 * time.Second
