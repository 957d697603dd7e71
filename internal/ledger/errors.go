package ledger

import (
	"errors"
	"fmt"
)

// 원장 관련 에러 정의
var (
	// ErrNotFlat은 무포지션 상태가 아닌데 매수를 시도할 때 발생하는 에러입니다
	ErrNotFlat = errors.New("무포지션 상태가 아니어서 매수할 수 없습니다")
	// ErrNotLong은 보유 상태가 아닌데 매도를 시도할 때 발생하는 에러입니다
	ErrNotLong = errors.New("보유 상태가 아니어서 매도할 수 없습니다")
	// ErrUnknownSide는 알 수 없는 체결 방향일 때 발생하는 에러입니다
	ErrUnknownSide = errors.New("알 수 없는 체결 방향입니다")
)

// LedgerError는 원장 조작 실패를 나타냅니다
type LedgerError struct {
	Op       string // 실패한 조작
	Sequence int    // 관련 시퀀스 번호
	Err      error  // 원인 에러
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("원장 조작 실패 [%s] (시퀀스 #%d): %v", e.Op, e.Sequence, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}
