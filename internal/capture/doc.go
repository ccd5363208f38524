// Package capture records received WebSocket messages for offline protocol
// analysis.
//
// A Recorder writes one JSON object per received message into a
// capture-<timestamp>.jsonl file (JSON Lines). It wraps the application's
// message handler: every message is recorded first and then delegated.
//
// An S3Archiver uploads the finished capture file to a bucket when the
// server shuts down. Both types expose methods shaped as lifespan hooks:
//
//	rec := capture.NewRecorder(dir, handler)
//	arch := capture.NewS3Archiver(client, bucket, prefix, rec.Path)
//
//	app, _ := adapter.New(
//	    adapter.WithMessageHandler(rec),
//	    adapter.WithStartup(rec.Open),
//	    adapter.WithStartup(arch.Verify),
//	    adapter.WithShutdown(rec.Close),
//	    adapter.WithShutdown(arch.Upload),
//	)
//
// Analyze reads a capture file back and summarizes it, classifying OCPP-J
// payloads as calls, results or errors.
package capture
