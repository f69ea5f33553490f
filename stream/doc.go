// Package stream consumes the salt-api websocket event stream.
//
// An EventStream connects to <url>/ws/<token>, acknowledges the connection
// with ReadyMessage and then reads text fragments on a single goroutine. The
// FrameAssembler joins fragments into messages, enforcing an optional size
// limit and swallowing the KeepAliveMessage reply. Each message is parsed into
// an event.Envelope and handed to every registered Listener.
//
// Any failure is terminal. Listeners receive exactly one StreamClosed call:
//
//	CloseMessageTooBig  message exceeded Config.MaxMessageLength
//	CloseAbnormal       transport error or unparsable message
//	CloseGoingAway      the caller invoked Close
//	peer code           the server sent a close frame
//
// Basic usage:
//
//	es, err := stream.Connect(ctx, stream.Config{
//	    URL:   "https://salt-master:8000",
//	    Token: token,
//	}, stream.WithListeners(&stream.ListenerFuncs{
//	    OnEvent: func(env event.Envelope) { fmt.Println(env.Tag) },
//	}))
//	if err != nil {
//	    return err
//	}
//	defer es.Close()
//
// Listeners are registered in a copy-on-write Registry, so they may add or
// remove listeners from inside their own callbacks without deadlocking.
package stream
