package pkg

const (
	HeaderTraceId string = "X-Trace-Id"
)

const (
	TraceId string = "trace_id"
	UserId  string = "user_id"
)

type TxKind string

const (
	TxKindIncome   TxKind = "income"
	TxKindExpense  TxKind = "expense"
	TxKindTransfer TxKind = "transfer"
)

// Valid reports whether k is one of the three supported transaction kinds.
func (k TxKind) Valid() bool {
	switch k {
	case TxKindIncome, TxKindExpense, TxKindTransfer:
		return true
	}
	return false
}
