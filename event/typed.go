package event

import (
	"encoding/json"
	"regexp"

	"github.com/c360/saltstreams/decode"
)

var (
	jobReturnPattern   = regexp.MustCompile(`^salt/job/([0-9]+)/ret/(\S+)$`)
	newJobPattern      = regexp.MustCompile(`^salt/job/([0-9]+)/new$`)
	runReturnPattern   = regexp.MustCompile(`^salt/run/([0-9]+)/ret$`)
	minionStartPattern = regexp.MustCompile(`^salt/minion/([^/]+)/start$`)
	beaconPattern      = regexp.MustCompile(`^salt/beacon/([^/]+)/([^/]+)/(.*)$`)
	enginePattern      = regexp.MustCompile(`^salt/engines/([^/]+)/(.*)$`)
	batchStartPattern  = regexp.MustCompile(`^salt/batch/([^/]+)/start$`)
)

// JobReturnData is the payload of salt/job/<jid>/ret/<minion>.
type JobReturnData struct {
	Timestamp    string          `json:"_stamp"`
	Function     string          `json:"fun"`
	FunctionArgs []any           `json:"fun_args"`
	MinionID     string          `json:"id"`
	JobID        string          `json:"jid"`
	RetCode      int             `json:"retcode"`
	Success      bool            `json:"success"`
	Return       json.RawMessage `json:"return"`
}

// JobReturnEvent reports one minion's return for a job.
type JobReturnEvent struct {
	JobID    string
	MinionID string
	Data     JobReturnData
}

// ParseJobReturn matches salt/job/<jid>/ret/<minion>.
func ParseJobReturn(e Envelope) (JobReturnEvent, bool) {
	m := jobReturnPattern.FindStringSubmatch(e.Tag)
	if m == nil {
		return JobReturnEvent{}, false
	}
	data, err := Project(e, decode.JSON[JobReturnData]())
	if err != nil {
		return JobReturnEvent{}, false
	}
	return JobReturnEvent{JobID: m[1], MinionID: m[2], Data: data}, true
}

// Result decodes the return value of a job return with the usual
// strict-then-classify rules.
func Result[R any](d JobReturnData, shape decode.Shape[R]) decode.Outcome[R] {
	raw := d.Return
	if raw == nil {
		raw = json.RawMessage("null")
	}
	return decode.Decode(raw, shape)
}

// NewJobData is the payload of salt/job/<jid>/new.
type NewJobData struct {
	Timestamp string   `json:"_stamp"`
	Function  string   `json:"fun"`
	Args      []any    `json:"arg"`
	JobID     string   `json:"jid"`
	Minions   []string `json:"minions"`
	Target    any      `json:"tgt"`
	TgtType   string   `json:"tgt_type"`
	User      string   `json:"user"`
}

// NewJobEvent reports a published job.
type NewJobEvent struct {
	JobID string
	Data  NewJobData
}

// ParseNewJob matches salt/job/<jid>/new.
func ParseNewJob(e Envelope) (NewJobEvent, bool) {
	m := newJobPattern.FindStringSubmatch(e.Tag)
	if m == nil {
		return NewJobEvent{}, false
	}
	data, err := Project(e, decode.JSON[NewJobData]())
	if err != nil {
		return NewJobEvent{}, false
	}
	return NewJobEvent{JobID: m[1], Data: data}, true
}

// RunReturnData is the payload of salt/run/<jid>/ret.
type RunReturnData struct {
	Timestamp string          `json:"_stamp"`
	Function  string          `json:"fun"`
	JobID     string          `json:"jid"`
	User      string          `json:"user"`
	Success   bool            `json:"success"`
	Return    json.RawMessage `json:"return"`
}

// RunReturnEvent reports the return of a runner job.
type RunReturnEvent struct {
	JobID string
	Data  RunReturnData
}

// ParseRunReturn matches salt/run/<jid>/ret.
func ParseRunReturn(e Envelope) (RunReturnEvent, bool) {
	m := runReturnPattern.FindStringSubmatch(e.Tag)
	if m == nil {
		return RunReturnEvent{}, false
	}
	data, err := Project(e, decode.JSON[RunReturnData]())
	if err != nil {
		return RunReturnEvent{}, false
	}
	return RunReturnEvent{JobID: m[1], Data: data}, true
}

// MinionStartEvent reports a minion (re)connecting to the master.
type MinionStartEvent struct {
	MinionID string
	Data     map[string]any
}

// ParseMinionStart matches salt/minion/<id>/start.
func ParseMinionStart(e Envelope) (MinionStartEvent, bool) {
	m := minionStartPattern.FindStringSubmatch(e.Tag)
	if m == nil {
		return MinionStartEvent{}, false
	}
	data, err := e.DataMap()
	if err != nil {
		return MinionStartEvent{}, false
	}
	return MinionStartEvent{MinionID: m[1], Data: data}, true
}

// BeaconEvent is fired by a beacon running on a minion.
type BeaconEvent struct {
	MinionID   string
	BeaconType string
	Additional string
	Data       map[string]any
}

// ParseBeacon matches salt/beacon/<id>/<beacon>/<rest>.
func ParseBeacon(e Envelope) (BeaconEvent, bool) {
	m := beaconPattern.FindStringSubmatch(e.Tag)
	if m == nil {
		return BeaconEvent{}, false
	}
	data, err := e.DataMap()
	if err != nil {
		return BeaconEvent{}, false
	}
	return BeaconEvent{MinionID: m[1], BeaconType: m[2], Additional: m[3], Data: data}, true
}

// EngineEvent is fired by a salt engine.
type EngineEvent struct {
	Engine     string
	Additional string
	Data       map[string]any
}

// ParseEngine matches salt/engines/<engine>/<rest>.
func ParseEngine(e Envelope) (EngineEvent, bool) {
	m := enginePattern.FindStringSubmatch(e.Tag)
	if m == nil {
		return EngineEvent{}, false
	}
	data, err := e.DataMap()
	if err != nil {
		return EngineEvent{}, false
	}
	return EngineEvent{Engine: m[1], Additional: m[2], Data: data}, true
}

// BatchStartData is the payload of salt/batch/<id>/start.
type BatchStartData struct {
	Timestamp   string   `json:"_stamp"`
	Minions     []string `json:"minions"`
	DownMinions []string `json:"down_minions"`
}

// BatchStartEvent reports the start of a batch run.
type BatchStartEvent struct {
	BatchID string
	Data    BatchStartData
}

// ParseBatchStart matches salt/batch/<id>/start.
func ParseBatchStart(e Envelope) (BatchStartEvent, bool) {
	m := batchStartPattern.FindStringSubmatch(e.Tag)
	if m == nil {
		return BatchStartEvent{}, false
	}
	data, err := Project(e, decode.JSON[BatchStartData]())
	if err != nil {
		return BatchStartEvent{}, false
	}
	return BatchStartEvent{BatchID: m[1], Data: data}, true
}
