// Package schedule turns a release calendar into a posting plan
//
// Everything here is pure date arithmetic and policy: the promotion window
// around a release, the target cadence derived from the platform mix and the
// artist's weekly time budget, the hysteresis controller that nudges that
// cadence from posting compliance, and the slot walk that lays posts onto
// Tuesdays, Thursdays and Fridays. Nothing in this package touches storage
package schedule
