package auth

// Kind は認証処理の結果種別を表します。
type Kind int

const (
	KindOK Kind = iota
	KindInvalidInput
	KindConflict
	KindAuthFailure
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "validation_conflict"
	case KindAuthFailure:
		return "authentication_failure"
	case KindInternal:
		return "internal_failure"
	default:
		return "unknown"
	}
}

// Result は登録・ログイン処理の結果です。
// Err はログ用で、クライアントには返しません。
type Result struct {
	Kind     Kind
	Username string
	Err      error
}

// OK は成功したかどうかを返します。
func (r Result) OK() bool {
	return r.Kind == KindOK
}

func succeeded(username string) Result {
	return Result{Kind: KindOK, Username: username}
}

func failed(kind Kind, err error) Result {
	return Result{Kind: kind, Err: err}
}
