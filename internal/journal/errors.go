package journal

import "errors"

// ErrUnintroducedFingerprint is returned by AppendCommand/AppendEvent when
// the record's layout fingerprint has never been introduced via a
// committed EntityLayoutIntroduced record.
var ErrUnintroducedFingerprint = errors.New("journal: fingerprint not introduced")

// ErrTxClosed is returned when Commit or Abort is called on a
// transaction that has already been committed or aborted, or when an
// append is attempted on one.
var ErrTxClosed = errors.New("journal: transaction already closed")
