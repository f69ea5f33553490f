// Package natsbridge republishes salt events on NATS.
//
// Listener implements stream.Listener and publishes every envelope it
// receives. Client wraps a nats.go connection with reconnect logging and
// connection-state metrics:
//
//	client, err := natsbridge.NewClient("nats://localhost:4222")
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
//	bridge, err := natsbridge.NewListener(client, "salt")
//	if err != nil {
//	    return err
//	}
//	es.AddListener(bridge)
//
// Subscribers can then filter with wildcards such as salt.job.*.ret.>.
package natsbridge
