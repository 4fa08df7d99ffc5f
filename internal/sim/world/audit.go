package world

import "freightgrid.dev/internal/protocol"

// AuditEntry is one structured diagnostic/mutation record. Entries go to
// the optional audit logger; aside from idle and blocked markers they are
// the only failure surface the core exposes.
type AuditEntry struct {
	Tick   uint64         `json:"tick"`
	Seq    uint64         `json:"seq"`
	Actor  string         `json:"actor"` // "WORLD", "NODE:<id>", "CAR:<id>"
	Action string         `json:"action"`
	Code   string         `json:"code,omitempty"` // protocol error code for diagnostics
	Detail map[string]any `json:"detail,omitempty"`
}

// TickLogEntry is one line of the per-tick JSONL log.
type TickLogEntry struct {
	Tick         uint64                 `json:"tick"`
	Digest       string                 `json:"digest"`
	Commands     int                    `json:"commands"`
	Transactions []protocol.Transaction `json:"transactions,omitempty"`
}

// Optional sinks. All may be nil; implementations live under
// internal/persistence.
type TickLogger interface {
	WriteTick(TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(AuditEntry) error
}

type TransactionSink interface {
	RecordTransaction(protocol.Transaction) error
}

func (w *World) auditEvent(nowTick uint64, actor, action, code string, detail map[string]any) {
	w.auditSeq++
	e := AuditEntry{
		Tick:   nowTick,
		Seq:    w.auditSeq,
		Actor:  actor,
		Action: action,
		Code:   code,
		Detail: detail,
	}
	if w.auditLogger != nil {
		_ = w.auditLogger.WriteAudit(e)
	}
	w.auditsThisTick = append(w.auditsThisTick, e)
}
