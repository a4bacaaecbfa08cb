package storage

// MessageRow is one raw message row. Data is the undecoded JSON blob; shape
// varies by role and provider, so decoding is deferred to the mappers.
type MessageRow struct {
	ID          string `db:"id"`
	SessionID   string `db:"session_id"`
	TimeCreated int64  `db:"time_created"`
	TimeUpdated int64  `db:"time_updated"`
	Data        string `db:"data"`
}

// PartRow is one raw part row. Parts hold message content fragments and
// tool-call state as JSON blobs.
type PartRow struct {
	ID          string `db:"id"`
	MessageID   string `db:"message_id"`
	SessionID   string `db:"session_id"`
	TimeCreated int64  `db:"time_created"`
	Data        string `db:"data"`
}

// SessionPartRow is a part row joined with its owning session's directory,
// used for cross-session skill aggregation.
type SessionPartRow struct {
	PartRow
	Directory string `db:"directory"`
}
