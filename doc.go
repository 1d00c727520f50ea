// Package clamd is a client for the clamd control protocol. It submits byte
// streams to a running ClamAV daemon for scanning over TCP or a Unix socket;
// it does not scan anything itself and does not manage the daemon process.
//
// Every operation opens one connection, performs one command/response
// exchange, and closes the connection, on every exit path. Two transports
// are available: BlockingTransport, where each socket operation blocks its
// goroutine until the OS completes it, and ContextTransport (the default),
// which honors context deadlines and closes the connection on cancellation
// so in-flight I/O unblocks deterministically. Both produce identical wire
// traffic.
//
//	client, err := clamd.New(
//	    clamd.TCPAddress{Host: "127.0.0.1", Port: 3310},
//	    clamd.Config{ChunkSize: clamd.DefaultChunkSize},
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.ScanFile("/path/to/file.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if result.IsInfected() {
//	    fmt.Println("found:", result.Signature)
//	}
//
// The library enforces no timeout and performs no retries; deadlines, retry
// and backoff policy belong to the caller.
package clamd
