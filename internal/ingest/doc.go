// Package ingest turns a live chat into queue registrations.
//
// A [Pipeline] resolves a stream URL to a chat handle, polls the chat one
// page at a time at the interval the upstream suggests, and hands every
// new message that matches the trigger keyword to a [Sink]. Message ids are
// remembered for the lifetime of one enable/disable cycle so pages that
// overlap never register the same message twice.
//
// Each Enable starts a new epoch. Results that arrive for an older epoch,
// such as a poll that was in flight when Disable ran, are dropped.
package ingest
