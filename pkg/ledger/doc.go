// Package ledger provides the Go types and Redis storage layer for MySettle
// accident sessions.
//
// # Overview
//
// The ledger is the shared state every MySettle component reads and writes:
// the HTTP API, the police dashboard CLI and the document renderer. A session
// pairs two drivers by a six digit OTP, collects their evidence and drafts,
// and ends when a police officer and both drivers have signed the report.
//
// # Core Concepts
//
// Users are drivers or police officers identified by an opaque ID.
//
// Sessions carry the lifecycle status and the three participant IDs. Every
// status change goes through UpdateSession, which runs the caller's mutation
// inside a WATCH/MULTI transaction so concurrent handlers never lose a write.
//
// Reports hold the three signatures. Evidence items and the set of uploaders
// hang off the report.
//
// Drafts are each driver's own account of the accident. PoliceDetails is the
// form the officer edits before the PDF documents are rendered.
//
// # Namespacing
//
// All Redis keys and Pub/Sub channels are prefixed with mysettle:{namespace}
// so several deployments can share one Redis server.
//
// # Usage Example
//
//	client, err := ledger.NewClient(&redis.Options{Addr: "localhost:6379"}, "prod")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	session, err := client.FindSessionByOTP(ctx, "123456")
//	if ledger.IsNotFound(err) {
//		// no session for this code
//	}
package ledger
