// Package notifier announces newly discovered exams.
//
// Announcements go to Twitter through OAuth1 user credentials, to a Telegram chat
// through the Bot API, or to a writer in dry-run mode. Select wraps any notifier
// with a record filter and a per-run cap.
package notifier
