// Package template renders digest messages: many pending notifications merged
// into one channel payload.
//
// A channel template body is plain text or HTML containing item fragments
// wrapped in comment markers:
//
//	<h1>Hello {user.name}</h1>
//	<!-- START: NOTIFICATION -->
//	<p>{notification.subject}</p>
//	<!-- END: NOTIFICATION -->
//	<!-- START: NOTIFICATION WITH BUTTON -->
//	<p>{notification.subject} <a href="{notification.confirmUrl}">{notification.confirmText}</a></p>
//	<!-- END: NOTIFICATION WITH BUTTON -->
//
// Parse extracts every fragment into ItemTemplates (keyed by the upper-cased
// marker name) and leaves the layout in Text, with the first fragment's
// position replaced by a reserved placeholder. Render picks a fragment per
// notification (button and image variants fall back to NOTIFICATION),
// substitutes the notification fields and splices the result into the layout.
//
// Parsed templates are immutable and safe for concurrent use; Cache memoizes
// them by body hash. Scratch buffers come from a bounded process-wide pool.
package template
