// Package config loads saltevents configuration.
//
// A Loader starts from Default(), applies each YAML file layer in order and
// then environment overrides named <prefix>_<SECTION>_<KEY>:
//
//	loader := config.NewLoader()
//	loader.AddLayer("/etc/saltevents/base.yaml")
//	loader.AddLayer("/etc/saltevents/site.yaml") // overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//	    return err
//	}
//	es, err := stream.Connect(ctx, cfg.Stream())
//
// A layer only overrides the keys it contains. Unknown keys are rejected.
// Durations use Go syntax ("45s", "2m").
//
// Example file:
//
//	salt:
//	  url: https://salt-master:8000
//	  token: 0123456789abcdef
//	  max_message_length: 1048576
//	nats:
//	  enabled: true
//	  url: nats://localhost:4222
//	  subject_prefix: salt
//	metrics:
//	  enabled: true
//	  port: 9090
//
// Environment overrides (default prefix SALTEVENTS):
//
//	SALTEVENTS_SALT_URL, SALTEVENTS_SALT_TOKEN, SALTEVENTS_SALT_MAX_MESSAGE_LENGTH,
//	SALTEVENTS_SALT_HANDSHAKE_TIMEOUT, SALTEVENTS_SALT_TLS_INSECURE_SKIP_VERIFY,
//	SALTEVENTS_SALT_TLS_CERT_FILE, SALTEVENTS_SALT_TLS_KEY_FILE,
//	SALTEVENTS_SALT_TLS_MIN_VERSION, SALTEVENTS_SALT_TLS_SERVER_NAME,
//	SALTEVENTS_NATS_ENABLED, SALTEVENTS_NATS_URL, SALTEVENTS_NATS_SUBJECT_PREFIX,
//	SALTEVENTS_NATS_ENCODING,
//	SALTEVENTS_NATS_USERNAME, SALTEVENTS_NATS_PASSWORD, SALTEVENTS_NATS_TOKEN,
//	SALTEVENTS_NATS_RECONNECT_WAIT, SALTEVENTS_METRICS_ENABLED,
//	SALTEVENTS_METRICS_PORT, SALTEVENTS_LOG_LEVEL, SALTEVENTS_LOG_FORMAT
//
// Config.String redacts secrets and is safe to log.
package config
