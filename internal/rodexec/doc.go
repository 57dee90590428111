// Package rodexec dispatches trajectory actions against a real browser
// via the rod CDP driver.
//
// The executor deliberately works at the coordinate level rather than
// the DOM level: cached trajectories store pixel positions, so replay
// must click the same pixels whether or not the page's markup changed.
// Visual validation, not selector matching, decides whether the click
// landed on the right control.
package rodexec
