package decode

// Client is the salt-api client a call is dispatched to.
type Client string

// Salt API clients.
const (
	ClientLocal  Client = "local"
	ClientRunner Client = "runner"
	ClientWheel  Client = "wheel"
	ClientSSH    Client = "ssh"
)

// Call is the boundary value handed over by the call-builder layer: a
// function name and its arguments, plus the target expression for targeted
// clients. Builders for individual salt modules live outside this module.
type Call struct {
	Client     Client
	Function   string
	Args       []any
	Kwargs     map[string]any
	Target     string
	TargetType string
}

// Strategy returns the decode strategy matching the call's client.
func (c Call) Strategy() Strategy {
	if c.Client == ClientSSH {
		return StrategyRemote
	}
	return StrategySum
}

// Targeted reports whether responses are keyed by minion id.
func (c Call) Targeted() bool {
	return c.Client == ClientLocal || c.Client == ClientSSH
}

// Payload returns the salt-api lowstate chunk for the call.
func (c Call) Payload() map[string]any {
	payload := map[string]any{
		"client": string(c.Client),
		"fun":    c.Function,
	}
	if len(c.Args) > 0 {
		payload["arg"] = c.Args
	}
	if len(c.Kwargs) > 0 {
		payload["kwarg"] = c.Kwargs
	}
	if c.Targeted() {
		payload["tgt"] = c.Target
		if c.TargetType != "" {
			payload["tgt_type"] = c.TargetType
		}
	}
	return payload
}
