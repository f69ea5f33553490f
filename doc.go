// Package saltstreams turns untrusted Salt API output into typed,
// recoverable results.
//
// Salt reports failures in-band: a minion that lacks a module answers with
// a string such as "'pkg.install' is not available.", a crashing function
// returns a Python traceback, and salt-ssh targets wrap everything in an
// envelope with an exit code and stderr. SaltStreams decodes those payloads
// against the shape the caller expects and, when that fails, classifies
// what came back instead of discarding it.
//
// # Layers
//
//	┌─────────────────────────────────────┐
//	│  cmd/saltevents                     │  CLI: log, bridge, serve
//	└─────────────────────────────────────┘
//	           ↓ listens on
//	┌─────────────────────────────────────┐
//	│  stream        natsbridge           │  Websocket event stream,
//	│  (assemble, dispatch)  (republish)  │  NATS forwarding
//	└─────────────────────────────────────┘
//	           ↓ yields
//	┌─────────────────────────────────────┐
//	│  event                              │  Envelopes, tag matchers
//	└─────────────────────────────────────┘
//	           ↓ decoded by
//	┌─────────────────────────────────────┐
//	│  decode   salterror   result        │  Shapes, error taxonomy,
//	│                                     │  two-branch results
//	└─────────────────────────────────────┘
//
// Supporting packages: errors (classified errors), metric (Prometheus
// registry and HTTP server), health (component status), config (YAML and
// environment configuration), pkg/tlsutil and pkg/buffer.
//
// # Decoding a response
//
//	res := decode.Decode(raw, decode.JSON[map[string]string]())
//	res.Consume(
//	    func(e salterror.SaltError) { log.Printf("minion failed: %v", e) },
//	    func(v map[string]string) { log.Printf("ok: %v", v) },
//	)
//
// # Consuming events
//
//	es, err := stream.Connect(ctx, stream.Config{URL: "https://salt:8000", Token: tok},
//	    stream.WithListeners(&stream.ListenerFuncs{
//	        OnEvent: func(env event.Envelope) {
//	            if ret, ok := event.ParseJobReturn(env); ok {
//	                fmt.Println(ret.JobID, ret.MinionID)
//	            }
//	        },
//	    }))
//
// The stream never reconnects. Once a listener has seen StreamClosed the
// instance is finished; connect a new one to resume.
package saltstreams
