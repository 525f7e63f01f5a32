// Package streamq provides a Go client for the StreamQ protocol.
//
// StreamQ is a framed streaming chat protocol for enterprise assistant
// applications. A client issues a chat request against one application
// and consumes the response as an ordered sequence of typed events:
// text deltas, status events, and a terminal completion or error.
//
// # Thread Safety
//
// [Client] is safe for concurrent use by multiple goroutines. A single
// channel carries at most one outstanding request, so only one
// [ChatSession] can be open per client at a time. A session's event
// sequence should only be consumed by a single goroutine.
//
// # Basic Usage
//
//	ctx := context.Background()
//
//	client, err := streamq.New(appID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	session, err := client.Chat(ctx, "Explain what Kendra does?", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for event, err := range session.Events(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if event.Text != nil {
//	        fmt.Print(*event.Text)
//	    }
//	}
//
// Events are pulled: no network read happens before the caller asks
// for the next event, so a slow consumer naturally applies
// backpressure. Breaking out of the loop closes the session and never
// leaks the underlying connection.
//
// # Observability
//
// Use [WithLogger], [WithOnSend], and [WithOnReceive] to add logging
// and monitoring to the client:
//
//	client, err := streamq.New(appID,
//	    streamq.WithLogger(slog.Default()),
//	    streamq.WithOnSend(func(req *streamq.Request) {
//	        metrics.RequestsSent.Inc()
//	    }),
//	)
package streamq
