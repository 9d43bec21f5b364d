// Package review talks to the homework review-status API.
//
// The pipeline is split in three steps so each can fail with its own
// classified error:
//
//   - Client.Fetch performs the authenticated GET and returns the decoded body.
//   - Validate checks the structural shape of that body.
//   - Describe turns the most recent homework record into a verdict message.
//
// Every failure matches one of the Err* sentinels via errors.Is.
package review
